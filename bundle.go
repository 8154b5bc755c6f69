package action

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// MaxScriptKB caps the bundled size of an action script, in kilobytes.
// The cap applies after bundling, so a small entry point pulling large
// dependencies is still rejected.
const MaxScriptKB = 1024

// nodeBuiltinModules lists Node.js built-in modules that are left external
// during bundling. Resolving them is a runtime concern; at definition time
// an import of "node:crypto" is valid and must not fail the build.
var nodeBuiltinModules = []string{
	"async_hooks",
	"buffer",
	"crypto",
	"events",
	"fs",
	"http",
	"https",
	"module",
	"net",
	"os",
	"path",
	"process",
	"stream",
	"string_decoder",
	"url",
	"util",
}

// BundleScript bundles the definition's entry script under deployPath into
// a single self-contained module, so actions may use ES module
// import/export across files. The bundled result is checked against
// MaxScriptKB; oversize bundles fail with ErrInvalidArgument.
//
// If the source contains no import statements it is returned as-is, after
// the same size check.
func BundleScript(deployPath string, def *Definition) (string, error) {
	entry := def.EntryPoint
	if entry == "" {
		entry = DefaultEntryPoint
	}
	entryPoint := filepath.Join(deployPath, entry)

	source, err := os.ReadFile(entryPoint)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", entry, err)
	}

	src := string(source)

	// Skip bundling if there are no import statements.
	if !needsBundling(src) {
		if err := checkScriptSize(len(src)); err != nil {
			return "", err
		}
		return src, nil
	}

	externals := make([]string, 0, len(nodeBuiltinModules)*2)
	for _, mod := range nodeBuiltinModules {
		externals = append(externals, mod, "node:"+mod)
	}

	result := esbuild.Build(esbuild.BuildOptions{
		EntryPoints:   []string{entryPoint},
		AbsWorkingDir: deployPath,
		Bundle:        true,
		Format:        esbuild.FormatESModule,
		Write:         false,
		Platform:      esbuild.PlatformBrowser,
		Target:        esbuild.ES2022,
		TreeShaking:   esbuild.TreeShakingFalse,
		External:      externals,
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return "", fmt.Errorf("bundling %s: %s", entry, strings.Join(msgs, "; "))
	}

	if len(result.OutputFiles) == 0 {
		return "", fmt.Errorf("bundling %s produced no output", entry)
	}

	bundled := string(result.OutputFiles[0].Contents)
	if err := checkScriptSize(len(bundled)); err != nil {
		return "", err
	}
	return bundled, nil
}

// checkScriptSize rejects scripts whose bundled size exceeds MaxScriptKB.
func checkScriptSize(n int) error {
	if n > MaxScriptKB*1024 {
		return fmt.Errorf("%w: bundled script is %d KB, above the maximum of %d KB", ErrInvalidArgument, n/1024, MaxScriptKB)
	}
	return nil
}

// needsBundling checks if a script contains import statements that
// require bundling. Simple scripts without imports can skip this step.
func needsBundling(source string) bool {
	return strings.Contains(source, "import ") ||
		strings.Contains(source, "import{") ||
		strings.Contains(source, "import(") ||
		strings.Contains(source, "from 'node:") ||
		strings.Contains(source, "from \"node:") ||
		strings.Contains(source, "require(")
}
