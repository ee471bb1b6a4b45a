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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workloadTemplate = `apiVersion: apps/v1
kind: ReplicaSet
metadata:
  name: ${REPLICASET_NAME}
spec:
  replicas: 1
  template:
    spec:
      containers:
      - name: requester
        image: ${CONTAINER_IMG_REG}:${CONTAINER_IMG_VERSION}
        env:
        - name: MODEL
          value: ${MODEL_REGISTRY}/${MODEL_REPO}
`

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server-request.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRenderWorkloadManifest(t *testing.T) {
	template := writeTemplate(t, workloadTemplate)

	out, err := RenderWorkloadManifest(template, "my-request-1-42")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(template), "my-request-1-42.yaml"), out)

	rendered, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(rendered), "name: my-request-1-42")
	assert.NotContains(t, string(rendered), "${REPLICASET_NAME}")
	// Image placeholders are someone else's to fill.
	assert.Contains(t, string(rendered), "${CONTAINER_IMG_REG}")
}

func TestRenderModelTemplate(t *testing.T) {
	template := writeTemplate(t, workloadTemplate)

	out, err := RenderModelTemplate(template, "quay.io/example/requester", "v0.3.0", "ibm-granite", "granite-3.1-2b")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(out), "inf-server-request-"))

	rendered, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(rendered), "image: quay.io/example/requester:v0.3.0")
	assert.Contains(t, string(rendered), "value: ibm-granite/granite-3.1-2b")
	// The workload name stays templated for the per-iteration render.
	assert.Contains(t, string(rendered), "${REPLICASET_NAME}")
}

func TestRenderModelTemplateUniqueNames(t *testing.T) {
	template := writeTemplate(t, workloadTemplate)
	first, err := RenderModelTemplate(template, "r", "t", "m", "n")
	require.NoError(t, err)
	second, err := RenderModelTemplate(template, "r", "t", "m", "n")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestRenderMissingTemplate(t *testing.T) {
	_, err := RenderWorkloadManifest(filepath.Join(t.TempDir(), "absent.yaml"), "x")
	assert.Error(t, err)
}
