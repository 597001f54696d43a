// Package settings loads the model settings document that drives a run.
// Settings live in HCL files; a path may name a single file or a directory
// whose .hcl files are merged into one document.
package settings

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/healthmetrics/cascade/internal/ctxlog"
	"github.com/healthmetrics/cascade/internal/identity"
)

// FullCascade is the drill_location value meaning "run every location".
const FullCascade = 0

// defaultSampleCount is used when number_of_fixed_effect_samples is omitted.
const defaultSampleCount = 1000

// Document is the whole settings file for one run.
type Document struct {
	Model    *Model    `hcl:"model,block"`
	Policies *Policies `hcl:"policies,block"`
}

// Model configures the shape of the cascade.
type Model struct {
	Title string `hcl:"title,optional"`
	// DrillLocation restricts the run to the chain of locations from the
	// hierarchy root down to this location. FullCascade runs everything.
	DrillLocation int `hcl:"drill_location,optional"`
	// SplitSexLevel is the hierarchy depth at and below which estimation
	// runs separately per sex. Zero never splits.
	SplitSexLevel int `hcl:"split_sex_level,optional"`
	// SampleCount is the number of fixed-effect samples, which sets the
	// multiplicity of each draws job.
	SampleCount int `hcl:"number_of_fixed_effect_samples,optional"`
	// LocationsFile names the YAML location hierarchy, relative to the
	// settings file's directory unless absolute.
	LocationsFile string `hcl:"locations_file"`
}

// Policies are run-wide knobs that individual jobs read from their local
// settings.
type Policies struct {
	SummaryQuantiles []float64 `hcl:"summary_quantiles,optional"`
	KeepIntermediate bool      `hcl:"keep_intermediate,optional"`
}

// Local is the slice of settings one recipe's jobs see. The graph
// machinery passes it through unexamined.
type Local struct {
	Location       int
	ParentLocation int
	Sex            identity.Sex
	SampleCount    int
	Policies       Policies
}

// evalContext exposes the constants settings files may reference.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"full_cascade": cty.NumberIntVal(FullCascade),
		},
	}
}

// Load reads and validates the settings document at path. Relative
// locations_file values are resolved against the settings directory.
func Load(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findSettingsFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl settings files found at %s", path)
	}
	logger.Debug("Loading settings.", "files", files)

	parser := hclparse.NewParser()
	doc := &Document{}
	for _, file := range files {
		parsed, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", file, diags)
		}

		partial := &Document{}
		if diags := gohcl.DecodeBody(parsed.Body, evalContext(), partial); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", file, diags)
		}

		if partial.Model != nil {
			if doc.Model != nil {
				return nil, fmt.Errorf("model block defined more than once, second definition in %s", file)
			}
			if partial.Model.LocationsFile != "" && !filepath.IsAbs(partial.Model.LocationsFile) {
				partial.Model.LocationsFile = filepath.Join(filepath.Dir(file), partial.Model.LocationsFile)
			}
			doc.Model = partial.Model
		}
		if partial.Policies != nil {
			if doc.Policies != nil {
				return nil, fmt.Errorf("policies block defined more than once, second definition in %s", file)
			}
			doc.Policies = partial.Policies
		}
	}

	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) validate() error {
	if d.Model == nil {
		return fmt.Errorf("settings must contain a model block")
	}
	if d.Model.DrillLocation < 0 {
		return fmt.Errorf("drill_location must not be negative, got %d", d.Model.DrillLocation)
	}
	if d.Model.SplitSexLevel < 0 {
		return fmt.Errorf("split_sex_level must not be negative, got %d", d.Model.SplitSexLevel)
	}
	if d.Model.SampleCount < 0 {
		return fmt.Errorf("number_of_fixed_effect_samples must not be negative, got %d", d.Model.SampleCount)
	}
	if d.Model.SampleCount == 0 {
		d.Model.SampleCount = defaultSampleCount
	}
	if d.Policies == nil {
		d.Policies = &Policies{}
	}
	for _, q := range d.Policies.SummaryQuantiles {
		if q < 0 || q > 1 {
			return fmt.Errorf("summary quantile %v outside [0, 1]", q)
		}
	}
	return nil
}

// findSettingsFiles resolves path to the list of .hcl files it names,
// either the file itself or every .hcl file under a directory.
func findSettingsFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("settings path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
