package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/genesis/internal/rewrite"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes, shared with the CLI's structured output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeNoRules       = "E101" // No rules defined
	ErrCodeInvalidRule   = "E102" // Rule does not compile
	ErrCodeInvalidTerm   = "E103" // Pattern, replacement or guard is not valid IR
	ErrCodeUnboundVar    = "E104" // Replacement uses a variable it cannot bind
	ErrCodeInvalidRuleID = "E105" // Missing or duplicate rule id
)

// LoadError is an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Result is what Load found.
type Result struct {
	RuleSet   *rewrite.RuleSet
	CUEValue  cue.Value
	FileCount int
}

// Load reads a rule set from a .cue file or from the CUE package in a
// directory. RuleSet is nil whenever errors are returned.
func Load(path string, mode LoadMode) (*Result, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules: %v", err)}}
	}

	var (
		dir   string
		args  []string
		files []string
	)
	if info.IsDir() {
		dir, args = path, []string{"."}
		files, err = FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
	} else {
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
		files = []string{path}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
	}

	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := cuecontext.New().BuildInstance(inst)
	res, errs := compileValue(value, defaultName(path, info.IsDir()), mode)
	if res != nil {
		res.FileCount = len(files)
	}
	return res, errs
}

// LoadRuleSet loads path and returns the rule set or the first error.
func LoadRuleSet(path string) (*rewrite.RuleSet, error) {
	res, errs := Load(path, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return res.RuleSet, nil
}

// CompileString compiles rule set source held in memory. filename is used
// in positions and as the default rule set name.
func CompileString(filename, src string, mode LoadMode) (*Result, []error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	return compileValue(value, defaultName(filename, false), mode)
}

func defaultName(path string, isDir bool) string {
	base := filepath.Base(path)
	if !isDir {
		base = base[:len(base)-len(filepath.Ext(base))]
	}
	return base
}

func compileValue(value cue.Value, name string, mode LoadMode) (*Result, []error) {
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	res := &Result{CUEValue: value}

	if nv := value.LookupPath(cue.ParsePath("name")); nv.Exists() {
		s, err := nv.String()
		if err != nil {
			return res, []error{convertCompileError(formatCUEError(err), "name")}
		}
		name = s
	}

	rulesVal := value.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return res, []error{&LoadError{Code: ErrCodeNoRules, Message: "no rules found", Pos: value.Pos()}}
	}
	iter, err := rulesVal.Fields()
	if err != nil {
		return res, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating rules: %v", err), Pos: rulesVal.Pos()}}
	}

	var (
		rules []rewrite.Rule
		errs  []error
	)
	for iter.Next() {
		r, err := CompileRule(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "rules."+iter.Label()))
			if mode == LoadModeFailFast {
				return res, errs
			}
			continue
		}
		rules = append(rules, r)
	}
	if len(rules) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoRules, Message: "rule set has no rules", Pos: rulesVal.Pos()})
	}
	if len(errs) > 0 {
		return res, errs
	}

	rs, err := rewrite.NewRuleSet(name, rules...)
	if err != nil {
		return res, []error{&LoadError{Code: ErrCodeInvalidRuleID, Message: err.Error()}}
	}
	if err := rs.Validate(); err != nil {
		for _, e := range unjoin(err) {
			errs = append(errs, &LoadError{Code: ErrCodeUnboundVar, Message: e.Error()})
			if mode == LoadModeFailFast {
				break
			}
		}
		return res, errs
	}
	res.RuleSet = rs
	return res, nil
}

// unjoin splits an errors.Join result.
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compile error to a LoadError with position
// info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		code := ErrCodeInvalidRule
		switch compileErr.Field {
		case "pattern", "replacement", "guard":
			code = ErrCodeInvalidTerm
		case "id":
			code = ErrCodeInvalidRuleID
		}
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
