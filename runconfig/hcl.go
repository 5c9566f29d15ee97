package runconfig

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// hclConfig is the HCL form of fileConfig. Commands are decoded as raw
// values so that both the string and the list form are accepted.
type hclConfig struct {
	TestPath       *string   `hcl:"test_path,optional"`
	Init           cty.Value `hcl:"init,optional"`
	BeforeEach     cty.Value `hcl:"before_each,optional"`
	Run            cty.Value `hcl:"run,optional"`
	RenderedFile   *string   `hcl:"rendered_file,optional"`
	WorkingDir     *string   `hcl:"working_dir,optional"`
	SuiteExtension *string   `hcl:"suite_extension,optional"`
}

func decodeHCL(filename string, raw []byte, fc *fileConfig) error {
	file, diags := hclparse.NewParser().ParseHCL(raw, filename)
	if diags.HasErrors() {
		return diags
	}
	var hc hclConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &hc); diags.HasErrors() {
		return diags
	}

	var err error
	if fc.Init, err = ctyCommands("init", hc.Init); err != nil {
		return err
	}
	if fc.BeforeEach, err = ctyCommands("before_each", hc.BeforeEach); err != nil {
		return err
	}
	if !hc.Run.IsNull() {
		run, err := ctyCommand("run", hc.Run)
		if err != nil {
			return err
		}
		fc.Run = &run
	}
	fc.TestPath = hc.TestPath
	fc.RenderedFile = hc.RenderedFile
	fc.WorkingDir = hc.WorkingDir
	fc.SuiteExtension = hc.SuiteExtension
	return nil
}

func ctyCommands(name string, v cty.Value) ([]commandSpec, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsTupleType() && !v.Type().IsListType() {
		return nil, fmt.Errorf("%s must be a list of commands, got %s", name, v.Type().FriendlyName())
	}
	var out []commandSpec
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		cmd, err := ctyCommand(name, el)
		if err != nil {
			return nil, err
		}
		out = append(out, cmd)
	}
	return out, nil
}

func ctyCommand(name string, v cty.Value) (commandSpec, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("%s: command must not be null", name)
	}
	if v.Type() == cty.String {
		return strings.Fields(v.AsString()), nil
	}
	if !v.Type().IsTupleType() && !v.Type().IsListType() {
		return nil, fmt.Errorf("%s: command must be a string or a list of strings, got %s", name, v.Type().FriendlyName())
	}
	var argv commandSpec
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.IsNull() {
			return nil, fmt.Errorf("%s: command arguments must not be null", name)
		}
		s, err := convert.Convert(el, cty.String)
		if err != nil {
			return nil, fmt.Errorf("%s: command arguments must be strings: %w", name, err)
		}
		argv = append(argv, s.AsString())
	}
	return argv, nil
}
