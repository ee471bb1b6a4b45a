/*
Copyright 2025 The llm-d Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package benchmark

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Manifest templates carry shell-style placeholders. The benchmark
// substitutes them textually and treats the produced file as opaque.
const (
	placeholderImageRegistry = "${CONTAINER_IMG_REG}"
	placeholderImageVersion  = "${CONTAINER_IMG_VERSION}"
	placeholderModelRegistry = "${MODEL_REGISTRY}"
	placeholderModelRepo     = "${MODEL_REPO}"
	placeholderWorkloadName  = "${REPLICASET_NAME}"
)

// RenderImageTemplate fills the container image placeholders of a manifest
// template and writes the result to a uniquely-named file next to the
// template, returning its path.
func RenderImageTemplate(templatePath, registry, tag string) (string, error) {
	outName := "inf-server-request-" + uuid.NewString() + ".yaml"
	return renderTemplate(templatePath, outName,
		placeholderImageRegistry, registry,
		placeholderImageVersion, tag)
}

// RenderModelTemplate additionally fills the model registry and repo
// placeholders, for the new-variant sweep.
func RenderModelTemplate(templatePath, registry, tag, modelRegistry, modelRepo string) (string, error) {
	outName := "inf-server-request-" + uuid.NewString() + ".yaml"
	return renderTemplate(templatePath, outName,
		placeholderImageRegistry, registry,
		placeholderImageVersion, tag,
		placeholderModelRegistry, modelRegistry,
		placeholderModelRepo, modelRepo)
}

// RenderWorkloadManifest fills the workload name placeholder, producing the
// per-iteration manifest <name>.yaml.
func RenderWorkloadManifest(templatePath, name string) (string, error) {
	return renderTemplate(templatePath, name+".yaml", placeholderWorkloadName, name)
}

func renderTemplate(templatePath, outName string, oldnew ...string) (string, error) {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", templatePath, err)
	}
	rendered := strings.NewReplacer(oldnew...).Replace(string(raw))
	outPath := filepath.Join(filepath.Dir(templatePath), outName)
	if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write manifest %s: %w", outPath, err)
	}
	return outPath, nil
}
