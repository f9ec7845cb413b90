package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/csv2hyper/internal/hypertype"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

var (
	createModes  = []string{"create_and_replace", "create", "create_if_not_exists", "none"}
	copySources  = []string{"path", "stream"}
	publishModes = []string{"overwrite", "append", "create_new"}
)

func matchPrefix(values []string, toComplete string) []string {
	var matches []string
	for _, v := range values {
		if strings.HasPrefix(v, toComplete) {
			matches = append(matches, v)
		}
	}
	return matches
}

// completeCreateModes provides shell completion for --create-mode.
func completeCreateModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return matchPrefix(createModes, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeCopySources provides shell completion for --copy-source.
func completeCopySources(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return matchPrefix(copySources, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completePublishModes provides shell completion for --mode.
func completePublishModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return matchPrefix(publishModes, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeDTypeOverrides completes the dtype half of --dtype col=dtype.
func completeDTypeOverrides(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	column, partial, ok := strings.Cut(toComplete, "=")
	if !ok {
		return nil, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
	}

	var matches []string
	for _, dtype := range hypertype.MustMapping(csv2hyper.DefaultDTypeVersion).DTypes() {
		if strings.HasPrefix(dtype, partial) {
			matches = append(matches, column+"="+dtype)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}

// completeConvertArgs completes a CSV file first, then the extract file.
func completeConvertArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return []string{"csv", "gz"}, cobra.ShellCompDirectiveFilterFileExt
	case 1:
		return []string{"hyper"}, cobra.ShellCompDirectiveFilterFileExt
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// completeExtractArg completes the single extract argument of publish.
func completeExtractArg(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"hyper"}, cobra.ShellCompDirectiveFilterFileExt
}
