// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/skyvault/internal/errors"
)

// bashCompletionTemplate is the bash completion script for SkyVault.
//
// It provides command and flag completion for bash shells using the
// bash completion framework.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for SkyVault
# Installation:
#   source <(skyvault completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(skyvault completion bash)' >> ~/.bashrc

_skyvault_completion() {
    local cur prev commands
    commands="init ingest status report completion"

    # Current word being completed
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Global flags
    if [[ ${cur} == -* ]] ; then
        COMPREPLY=( $(compgen -W "--version --config --json --quiet --no-color" -- ${cur}) )
        return 0
    fi

    # First argument: complete commands
    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    # Command-specific flag completion
    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        init)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--force -y --name --collection --instrument --formatter --detectors --filters" -- ${cur}) )
            fi
            ;;
        ingest)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--collection --transfer --conflict --stash --on-error --no-regions --pad --debug --metrics-addr" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -f -- ${cur}) )
            fi
            ;;
        status)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json" -- ${cur}) )
            fi
            ;;
        report)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json" -- ${cur}) )
            fi
            ;;
        completion)
            # Complete shell names for completion command
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _skyvault_completion skyvault
`

// zshCompletionTemplate is the zsh completion script for SkyVault.
//
// It provides command and flag completion for zsh shells using the
// zsh completion system.
const zshCompletionTemplate = `#compdef skyvault

# Zsh completion script for SkyVault
# Installation:
#   1. Ensure compinit is loaded (add to ~/.zshrc if not present):
#      autoload -U compinit; compinit
#   2. Save this script to a directory in your fpath:
#      skyvault completion zsh > "${fpath[1]}/_skyvault"
#   3. Reload completions:
#      rm -f ~/.zcompdump; compinit

_skyvault() {
    local -a commands
    commands=(
        'init:Create .skyvault/project.yaml and the repository layout'
        'ingest:Ingest raw observation files into a collection'
        'status:Show repository status'
        'report:Show a persisted ingest run report'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--config[Path to .skyvault/project.yaml]:config file:_files -g "*.yaml"' \
        '--json[Output as JSON]' \
        '(-q --quiet)'{-q,--quiet}'[Suppress progress output]' \
        '--no-color[Disable colored output]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                init)
                    _arguments \
                        '--force[Overwrite existing configuration]' \
                        '-y[Non-interactive mode (use defaults)]' \
                        '--name[Repository name]:name:' \
                        '--collection[Default collection]:collection:' \
                        '--instrument[Instrument name to register]:instrument:' \
                        '--formatter[Formatter class]:formatter:' \
                        '--detectors[Comma-separated detector ids]:detectors:' \
                        '--filters[Comma-separated physical filters]:filters:'
                    ;;
                ingest)
                    _arguments \
                        '--collection[Target collection]:collection:' \
                        '--transfer[Transfer mode]:mode:(none copy hardlink symlink move)' \
                        '--conflict[Conflict policy]:policy:(ignore fail)' \
                        '--stash[Stash collection for conflicts]:collection:' \
                        '--on-error[Batch failure policy]:policy:(continue break rollback)' \
                        '--no-regions[Skip sky region computation]' \
                        '--pad[Detector bounding box padding in pixels]:pixels:' \
                        '--debug[Enable debug logging]' \
                        '--metrics-addr[Prometheus metrics address]:address:' \
                        '*:raw file:_files'
                    ;;
                status)
                    _arguments \
                        '--json[Output as JSON]'
                    ;;
                report)
                    _arguments \
                        '--json[Output as JSON]' \
                        '1:run id:'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_skyvault
`

// fishCompletionTemplate is the fish completion script for SkyVault.
//
// It provides command and flag completion for fish shells using the
// fish completion system.
const fishCompletionTemplate = `# Fish completion script for SkyVault
# Installation:
#   1. Load completions for current session:
#      skyvault completion fish | source
#   2. Install permanently:
#      skyvault completion fish > ~/.config/fish/completions/skyvault.fish

# Commands
complete -c skyvault -f -n "__fish_use_subcommand" -a "init" -d "Create .skyvault/project.yaml and the repository layout"
complete -c skyvault -f -n "__fish_use_subcommand" -a "ingest" -d "Ingest raw observation files into a collection"
complete -c skyvault -f -n "__fish_use_subcommand" -a "status" -d "Show repository status"
complete -c skyvault -f -n "__fish_use_subcommand" -a "report" -d "Show a persisted ingest run report"
complete -c skyvault -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

# Global flags
complete -c skyvault -l version -d "Show version and exit"
complete -c skyvault -l config -d "Path to .skyvault/project.yaml" -r
complete -c skyvault -l json -d "Output as JSON"
complete -c skyvault -s q -l quiet -d "Suppress progress output"
complete -c skyvault -l no-color -d "Disable colored output"

# init command flags
complete -c skyvault -n "__fish_seen_subcommand_from init" -l force -d "Overwrite existing configuration"
complete -c skyvault -n "__fish_seen_subcommand_from init" -s y -d "Non-interactive mode (use defaults)"
complete -c skyvault -n "__fish_seen_subcommand_from init" -l name -d "Repository name" -r
complete -c skyvault -n "__fish_seen_subcommand_from init" -l collection -d "Default collection" -r
complete -c skyvault -n "__fish_seen_subcommand_from init" -l instrument -d "Instrument name to register" -r
complete -c skyvault -n "__fish_seen_subcommand_from init" -l formatter -d "Formatter class" -r
complete -c skyvault -n "__fish_seen_subcommand_from init" -l detectors -d "Comma-separated detector ids" -r
complete -c skyvault -n "__fish_seen_subcommand_from init" -l filters -d "Comma-separated physical filters" -r

# ingest command flags
complete -c skyvault -n "__fish_seen_subcommand_from ingest" -l collection -d "Target collection" -r
complete -c skyvault -n "__fish_seen_subcommand_from ingest" -l transfer -d "Transfer mode" -r -f -a "none copy hardlink symlink move"
complete -c skyvault -n "__fish_seen_subcommand_from ingest" -l conflict -d "Conflict policy" -r -f -a "ignore fail"
complete -c skyvault -n "__fish_seen_subcommand_from ingest" -l stash -d "Stash collection for conflicts" -r
complete -c skyvault -n "__fish_seen_subcommand_from ingest" -l on-error -d "Batch failure policy" -r -f -a "continue break rollback"
complete -c skyvault -n "__fish_seen_subcommand_from ingest" -l no-regions -d "Skip sky region computation"
complete -c skyvault -n "__fish_seen_subcommand_from ingest" -l pad -d "Detector bounding box padding in pixels" -r
complete -c skyvault -n "__fish_seen_subcommand_from ingest" -l debug -d "Enable debug logging"
complete -c skyvault -n "__fish_seen_subcommand_from ingest" -l metrics-addr -d "Prometheus metrics address" -r

# status command flags
complete -c skyvault -n "__fish_seen_subcommand_from status" -l json -d "Output as JSON"

# report command flags
complete -c skyvault -n "__fish_seen_subcommand_from report" -l json -d "Output as JSON"

# completion command arguments
complete -c skyvault -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c skyvault -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c skyvault -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion executes the 'completion' CLI command, generating
// shell-specific completion scripts for bash, zsh, or fish shells.
//
// The completion command outputs a shell-specific script to stdout that
// can be sourced to enable tab completion for SkyVault commands and
// flags.
//
// Usage:
//
//	skyvault completion [bash|zsh|fish]
//
// Examples:
//
//	skyvault completion bash                          Output bash completion script
//	source <(skyvault completion bash)                Load bash completions in current shell
//	skyvault completion zsh > "${fpath[1]}/_skyvault" Install zsh completions permanently
//	skyvault completion fish | source                 Load fish completions in current shell
func runCompletion(args []string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skyvault completion <shell>

Description:
  Generate shell completion scripts for bash, zsh, or fish.

  Shell completions allow you to use Tab to autocomplete commands,
  flags, and arguments.

Arguments:
  shell    Shell type: bash, zsh, or fish (required)

Examples:
  # Load bash completions in current shell
  source <(skyvault completion bash)

  # Install bash completions permanently (Linux)
  skyvault completion bash > /etc/bash_completion.d/skyvault

  # Install zsh completions
  skyvault completion zsh > "${fpath[1]}/_skyvault"

  # Install fish completions
  skyvault completion fish > ~/.config/fish/completions/skyvault.fish

Notes:
  After installing completions, restart your shell or source your rc file.

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	// Validate arguments
	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'skyvault completion bash', 'skyvault completion zsh', or 'skyvault completion fish'",
		), false)
	}

	shell := fs.Arg(0)

	// Generate completion script for the specified shell
	switch shell {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		errors.FatalError(errors.NewInputError(
			"Unsupported shell",
			fmt.Sprintf("Shell '%s' is not supported. Valid options: bash, zsh, fish", shell),
			"Run 'skyvault completion bash', 'skyvault completion zsh', or 'skyvault completion fish'",
		), false)
	}
}
