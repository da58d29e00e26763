package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/i474232898/warming-map/internal/climate"
)

// ErrMissingFiles is returned by Catalog.Check when expected files are absent.
var ErrMissingFiles = errors.New("missing data files")

// DefaultVariable is the NetCDF variable holding 2 m temperature.
const DefaultVariable = "t2m"

// Catalog locates the per-selector NetCDF files under one directory.
type Catalog struct {
	Dir      string
	Variable string
	Logger   *slog.Logger
}

// FileName returns the base name of the file serving sel.
func FileName(sel climate.Selector) string {
	if sel.IsAnnual() {
		return "t2m_2deg_annual_mean.nc"
	}
	return fmt.Sprintf("t2m_2deg_month_%02d.nc", int(sel))
}

// Path returns the full path of the file serving sel.
func (c Catalog) Path(sel climate.Selector) string {
	return filepath.Join(c.Dir, FileName(sel))
}

// Missing lists the base names of all expected files that do not exist.
func (c Catalog) Missing() []string {
	var missing []string
	for _, sel := range climate.Selectors() {
		info, err := os.Stat(c.Path(sel))
		if err != nil || info.IsDir() {
			missing = append(missing, FileName(sel))
		}
	}
	return missing
}

// Check fails with ErrMissingFiles naming every absent file.
func (c Catalog) Check() error {
	missing := c.Missing()
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w in %s: %s", ErrMissingFiles, c.Dir, strings.Join(missing, ", "))
}

// Open implements climate.Opener.
func (c Catalog) Open(sel climate.Selector) (climate.Source, error) {
	variable := c.Variable
	if variable == "" {
		variable = DefaultVariable
	}
	path := c.Path(sel)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w in %s: %s", ErrMissingFiles, c.Dir, FileName(sel))
	}
	src, err := OpenNetCDF(path, variable)
	if err != nil {
		return nil, err
	}
	if c.Logger != nil {
		c.Logger.Debug("netcdf opened", "path", path, "variable", variable)
	}
	return src, nil
}
