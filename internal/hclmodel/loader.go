package hclmodel

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/mechnet/internal/config"
	"github.com/vk/mechnet/internal/ctxlog"
	"github.com/vk/mechnet/internal/fsutil"
	"github.com/vk/mechnet/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader
// interface.
type Loader struct{}

// NewLoader creates a new HCL model loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under the given paths and merges the
// discovered blocks into one model. A path may be a single file or a
// directory searched recursively.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL model loader started.", "path_count", len(paths))

	files, err := l.findModelFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl model files found in %v", paths)
	}
	logger.Debug("Discovered model files.", "count", len(files))

	model := &config.Model{Inputs: make(map[string][][][]float64)}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse model file %s: %w", file, diags)
		}
		var root schema.Model
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode model file %s: %w", file, diags)
		}
		if err := mergeModel(model, &root, file); err != nil {
			return nil, err
		}
	}

	logger.Debug("HCL model loading complete.",
		"nodes", len(model.Nodes), "projections", len(model.Projections), "inputs", len(model.Inputs))
	return model, nil
}

func (l *Loader) findModelFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("model path %s: %w", path, err)
		}
		var found []string
		if info.IsDir() {
			found, err = fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
		} else {
			found = []string{path}
		}
		for _, f := range found {
			if _, dup := seen[f]; !dup {
				seen[f] = struct{}{}
				all = append(all, f)
			}
		}
	}
	return all, nil
}

func mergeModel(dst *config.Model, src *schema.Model, file string) error {
	if src.Name != "" {
		dst.Name = src.Name
	}
	for _, n := range src.Nodes {
		dst.Nodes = append(dst.Nodes, translateNode(n))
	}
	for _, p := range src.Projections {
		dst.Projections = append(dst.Projections, translateProjection(p))
	}
	for _, in := range src.Inputs {
		if _, dup := dst.Inputs[in.Node]; dup {
			return fmt.Errorf("%s: duplicate input block for node %q", file, in.Node)
		}
		dst.Inputs[in.Node] = in.Trials
	}
	if src.Run != nil {
		dst.Run = config.Run{Trials: src.Run.Trials, Passes: src.Run.Passes}
	}
	return nil
}
