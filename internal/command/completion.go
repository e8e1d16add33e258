package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/staranto/recipectl/internal/meta"
	"github.com/urfave/cli/v3"
)

const bashCompletionScript = `# bash completion for recipectl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_recipectl()
{
    local cur prev cmd sub
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "cache image recipes serve completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    sub=${COMP_WORDS[2]}
    local common="--cache-dir --color -c --filter -f --output -o --sort -s --timeout --titles -t"

    case "$cmd" in
        cache)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "clear stats" -- "$cur") )
                return 0
            fi
            local opts="$common"
            [[ "$sub" == "clear" ]] && opts="$opts --wait --no-wait"
            ;;
        image)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "get cached key" -- "$cur") )
                return 0
            fi
            local opts="$common"
            [[ "$sub" == "get" ]] && opts="$opts --out --dedup"
            ;;
        recipes)
            local opts="$common --endpoint -e --search -q --prefetch --large --concurrency --group"
            ;;
        serve)
            local opts="$common --addr --endpoint -e --metrics --no-metrics"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json yaml" -- "$cur") )
        return 0
    fi
    if [[ "$prev" == "--endpoint" || "$prev" == "-e" ]]; then
        COMPREPLY=( $(compgen -W "all malformed empty" -- "$cur") )
        return 0
    fi
    if [[ "$prev" == "--cache-dir" || "$prev" == "--out" ]]; then
        COMPREPLY=( $(compgen -o dirnames -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _recipectl recipectl
`

const zshCompletionScript = `#compdef recipectl

_recipectl() {
  local -a cmds
  cmds=(
    'cache:manage the image cache'
    'image:image cache operations'
    'recipes:list recipes from a feed'
    'serve:serve cached images and recipes over HTTP'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '--cache-dir[image cache directory]:dir:_directories'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '--timeout[network timeout]:duration'
  '(-t --titles)'{-t,--titles}'[show titles]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'recipectl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    cache)
      if (( CURRENT == 3 )); then
        _values 'cache commands' clear stats
        return
      fi
      _arguments -C $common '--wait[block until cleared]' '--no-wait[return immediately]'
      ;;
    image)
      if (( CURRENT == 3 )); then
        _values 'image commands' get cached key
        return
      fi
      _arguments -C \
        $common \
        '--out[write image bytes]:file:_files' \
        '--dedup[coalesce concurrent loads]' \
        '*:url'
      ;;
    recipes)
      _arguments -C \
        $common \
        '(-e --endpoint)'{-e,--endpoint}'[feed]:feed:(all malformed empty)' \
        '(-q --search)'{-q,--search}'[search term]:term' \
        '--prefetch[warm the image cache]' \
        '--large[prefer the large photo]' \
        '--concurrency[loads in flight]:n' \
        '--group[group by first letter]'
      ;;
    serve)
      _arguments -C \
        $common \
        '--addr[listen address]:addr' \
        '(-e --endpoint)'{-e,--endpoint}'[feed]:feed:(all malformed empty)' \
        '--metrics[expose /metrics]' \
        '--no-metrics[hide /metrics]'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _recipectl recipectl
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(cmd.Root().Writer, bashCompletionScript)
	case "zsh":
		fmt.Fprint(cmd.Root().Writer, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(cmd.Root().Writer, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(cmd.Root().Writer, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: recipectl completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "recipectl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
