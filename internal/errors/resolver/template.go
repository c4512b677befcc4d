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

package resolver

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// baseTemplate holds the subtemplates every message can use.
var baseTemplate = template.Must(template.New("base").Parse(detailsTemplate))

// detailsTemplate renders a list of text blocks, such as the output of a
// failed command, under a "Details:" heading. An empty list renders nothing.
const detailsTemplate = `
{{- define "Details" }}
{{- if . }}

Details:
{{- range . }}
{{ . }}
{{- end }}
{{- end }}
{{- end }}
`

// details drops the empty blocks.
func details(blocks ...string) []string {
	var res []string
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			res = append(res, strings.TrimRight(b, "\n"))
		}
	}
	return res
}

// ExecuteTemplate renders text with data. The templates are constants, so
// a failure is a programming error and panics.
func ExecuteTemplate(text string, data interface{}) string {
	tmpl := template.Must(template.Must(baseTemplate.Clone()).Parse(text))

	var b bytes.Buffer
	if err := tmpl.Execute(&b, data); err != nil {
		panic(fmt.Errorf("error executing template %q: %w", text, err))
	}
	return strings.TrimSpace(b.String())
}
