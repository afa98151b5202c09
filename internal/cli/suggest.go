// Package cli 命令行子命令共用的辅助函数
package cli

import (
	"fmt"

	"github.com/agnivade/levenshtein"
)

// maxSuggestionDistance "did you mean" 提示的最大编辑距离
const maxSuggestionDistance = 3

// UnknownSubcommandError 未知子命令错误，附带最接近的候选
func UnknownSubcommandError(prefix, unknown string, valid []string) error {
	if best := FindClosest(unknown, valid); best != "" {
		return fmt.Errorf("unknown %s subcommand: %s (did you mean %q?)", prefix, unknown, best)
	}
	return fmt.Errorf("unknown %s subcommand: %s", prefix, unknown)
}

// UnknownCommandError 未知命令错误，附带最接近的候选
func UnknownCommandError(unknown string, valid []string) error {
	if best := FindClosest(unknown, valid); best != "" {
		return fmt.Errorf("unknown command: %s (did you mean %q?)", unknown, best)
	}
	return fmt.Errorf("unknown command: %s", unknown)
}

// FindClosest 返回编辑距离最小且不超过阈值的候选，没有时返回空串
func FindClosest(input string, candidates []string) string {
	var best string
	bestDist := maxSuggestionDistance + 1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(input, c); d < bestDist {
			bestDist = d
			best = c
		}
	}
	if bestDist <= maxSuggestionDistance {
		return best
	}
	return ""
}
