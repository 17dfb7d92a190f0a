package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/rules"
)

// ValidationIssue is one problem found in a rule set.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Name   string            `json:"name,omitempty"`
	Rules  int               `json:"rules"`
	Files  int               `json:"files"`
	Hash   string            `json:"hash,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

func (r ValidationResult) String() string {
	return fmt.Sprintf("✓ rule set %s is valid: %d rule(s) in %d file(s)\nhash %s", r.Name, r.Rules, r.Files, r.Hash)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules>",
		Short: "Check a rule set without evaluating anything",
		Long: `Validate a CUE rule set: schema, term encodings, unique ids and template
variables. All problems are reported, not just the first.

Exit codes:
  0 - Rule set is valid
  1 - Rule set has errors
  2 - Command error (path not found, no CUE files)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, args[0])
		},
	}
}

func runValidate(cmd *cobra.Command, opts *RootOptions, path string) error {
	out := opts.formatter(cmd)

	res, errs := rules.Load(path, rules.LoadModeCollectAll)
	if res == nil && len(errs) > 0 {
		return out.Fail(ExitCommandError, loadErrCode(errs[0]), errs[0].Error(), nil)
	}
	out.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, path)

	if len(errs) > 0 {
		result := ValidationResult{Files: res.FileCount, Errors: make([]ValidationIssue, 0, len(errs))}
		for _, err := range errs {
			result.Errors = append(result.Errors, issueFor(err))
		}
		if opts.Format == "json" {
			if err := out.Success(result); err != nil {
				return err
			}
		} else {
			w := out.Writer
			fmt.Fprintf(w, "✗ %d error(s) in %s\n", len(result.Errors), path)
			for _, issue := range result.Errors {
				loc := ""
				if issue.Line > 0 {
					loc = fmt.Sprintf("%s:%d: ", issue.File, issue.Line)
				}
				fmt.Fprintf(w, "  %s[%s] %s\n", loc, issue.Code, issue.Message)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(errs)))
	}

	hash, err := res.RuleSet.Hash()
	if err != nil {
		return out.Fail(ExitFailure, rules.ErrCodeInvalidRule, "failed to hash rule set", err)
	}
	return out.Success(ValidationResult{
		Valid: true,
		Name:  res.RuleSet.Name(),
		Rules: res.RuleSet.Len(),
		Files: res.FileCount,
		Hash:  hash,
	})
}

func issueFor(err error) ValidationIssue {
	var loadErr *rules.LoadError
	if errors.As(err, &loadErr) {
		issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			issue.File = loadErr.Pos.Filename()
			issue.Line = loadErr.Pos.Line()
		}
		return issue
	}
	return ValidationIssue{Code: rules.ErrCodeGeneric, Message: strings.TrimSpace(err.Error())}
}

// loadErrCode returns the code of a rule loading error.
func loadErrCode(err error) string {
	var loadErr *rules.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return rules.ErrCodeGeneric
}
