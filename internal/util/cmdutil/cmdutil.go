// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmdutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kptdev/matsync/internal/errors"
	v1 "github.com/kptdev/matsync/pkg/api/material/v1"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

const (
	StackTraceOnErrors = "COBRA_STACK_TRACE_ON_ERRORS"
	trueString         = "true"

	OutputTable = "table"
	OutputYAML  = "yaml"
	OutputJSON  = "json"
)

// OutputFormats lists the values accepted by --output.
var OutputFormats = []string{OutputTable, OutputYAML, OutputJSON}

// FixDocs replaces instances of old with new in the docs for c
func FixDocs(old, new string, c *cobra.Command) {
	c.Use = strings.ReplaceAll(c.Use, old, new)
	c.Short = strings.ReplaceAll(c.Short, old, new)
	c.Long = strings.ReplaceAll(c.Long, old, new)
	c.Example = strings.ReplaceAll(c.Example, old, new)
}

func PrintErrorStacktrace() bool {
	e := os.Getenv(StackTraceOnErrors)
	if StackOnError || e == trueString || e == "1" {
		return true
	}
	return false
}

// StackOnError if true, will print a stack trace on failure.
var StackOnError bool

// MaterialFlags binds the flags that describe a material. Flags set
// explicitly override the fields of the --material descriptor.
type MaterialFlags struct {
	File         string
	PasswordFile string
	Material     v1.GitMaterial
}

// AddFlags registers the material flags on c.
func (f *MaterialFlags) AddFlags(c *cobra.Command) {
	f.Bind(c.Flags())
}

// Bind registers the material flags on fs.
func (f *MaterialFlags) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.File, "material", "",
		"path to a YAML material descriptor.")
	fs.StringVar(&f.Material.Name, "name", "",
		"name of the material, used in messages.")
	fs.StringVar(&f.Material.URL, "url", "",
		"url of the git repository.")
	fs.StringVar(&f.Material.Branch, "branch", "",
		"branch of the material. defaults to "+v1.DefaultBranch+".")
	fs.StringVar(&f.Material.Username, "username", "",
		"username for http(s) repositories.")
	fs.StringVar(&f.PasswordFile, "password-file", "",
		"file holding the password for http(s) repositories.")
	fs.BoolVar(&f.Material.ShallowClone, "shallow", false,
		"keep shallow working copies holding only the history that is needed.")
	fs.StringVar(&f.Material.Destination, "destination", "",
		"folder of the working copy, relative to the base directory.")
	fs.StringVar(&f.Material.SubmoduleFolder, "submodule-folder", "",
		"folder of the material when it is a submodule of another material.")
}

// Given returns true if a material was described at all.
func (f *MaterialFlags) Given(c *cobra.Command) bool {
	if f.File != "" {
		return true
	}
	return c.Flags().Changed("url")
}

// Load returns the validated material described by the flags.
func (f *MaterialFlags) Load(c *cobra.Command) (*v1.GitMaterial, error) {
	const op errors.Op = "cmdutil.Load"
	m := f.Material
	if f.File != "" {
		fromFile, err := v1.ReadFile(f.File)
		if err != nil {
			return nil, errors.E(op, errors.Config, pkgerrors.Wrap(err, "unable to read the material"))
		}
		m = *fromFile
		f.override(c, &m)
	}
	if f.PasswordFile != "" {
		b, err := os.ReadFile(f.PasswordFile)
		if err != nil {
			return nil, errors.E(op, errors.Config, pkgerrors.Wrapf(err, "unable to read password file %q", f.PasswordFile))
		}
		m.Password = strings.TrimRight(string(b), "\r\n")
	}
	m.URL = strings.TrimSpace(m.URL)
	if err := m.Validate(); err != nil {
		return nil, errors.E(op, errors.Config, err)
	}
	return &m, nil
}

func (f *MaterialFlags) override(c *cobra.Command, m *v1.GitMaterial) {
	changed := c.Flags().Changed
	if changed("name") {
		m.Name = f.Material.Name
	}
	if changed("url") {
		m.URL = f.Material.URL
	}
	if changed("branch") {
		m.Branch = f.Material.Branch
	}
	if changed("username") {
		m.Username = f.Material.Username
	}
	if changed("shallow") {
		m.ShallowClone = f.Material.ShallowClone
	}
	if changed("destination") {
		m.Destination = f.Material.Destination
	}
	if changed("submodule-folder") {
		m.SubmoduleFolder = f.Material.SubmoduleFolder
	}
}

// ValidateOutputFormat returns an error unless format is one of
// OutputFormats.
func ValidateOutputFormat(format string) error {
	const op errors.Op = "cmdutil.ValidateOutputFormat"
	for _, f := range OutputFormats {
		if f == format {
			return nil
		}
	}
	return errors.E(op, errors.InvalidParam,
		fmt.Errorf("unknown output format %q, must be one of: %s", format, strings.Join(OutputFormats, ",")))
}

// WriteStructured writes v to w as YAML or JSON.
func WriteStructured(w io.Writer, format string, v interface{}) error {
	const op errors.Op = "cmdutil.WriteStructured"
	switch format {
	case OutputYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return errors.E(op, errors.Internal, err)
		}
		_, err = w.Write(b)
		return err
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return errors.E(op, errors.Internal, err)
		}
		return nil
	}
	return errors.E(op, errors.InvalidParam, fmt.Errorf("%q is not a structured output format", format))
}
