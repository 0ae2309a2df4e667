// Package generator runs the registry-to-C-table pipeline.
package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sigreer/usbidgen/internal/cache"
	"github.com/sigreer/usbidgen/internal/config"
	"github.com/sigreer/usbidgen/internal/db"
	"github.com/sigreer/usbidgen/internal/emit"
	"github.com/sigreer/usbidgen/internal/registry"
	"github.com/sigreer/usbidgen/internal/source"
	"github.com/sigreer/usbidgen/internal/table"
)

// Options configure a run.
type Options struct {
	Config    *config.Config
	Refresh   bool   // re-download a cached remote registry
	DB        *db.DB // optional; receives the table and a generation record
	Generator string // name stamped into the generated files
	Logger    logrus.FieldLogger
	Client    *http.Client
	Now       func() time.Time
}

// Parsed is a registry read into a verified table.
type Parsed struct {
	Table      *table.Table
	Summary    table.Summary
	MarkerSeen bool
	Resorted   bool // rows were not in table order and had to be sorted
	Lines      int
	SHA256     string
	Source     *source.Info
}

// Report describes a completed generation.
type Report struct {
	*Parsed
	DataPath   string
	HeaderPath string
	DataSize   int64
	HeaderSize int64
	Generation *db.Generation
}

func (o *Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Load reads the configured registry and returns its table, sorted and
// self-tested.
func Load(ctx context.Context, opts Options) (*Parsed, error) {
	cfg := opts.Config
	log := opts.logger()

	srcOpts := source.Options{Refresh: opts.Refresh, Client: opts.Client, Logger: log}
	if !cfg.Cache.Disabled {
		srcOpts.Cache = cache.New(cfg.Cache.Dir, cfg.Cache.TTL)
	}

	rc, info, err := source.Open(ctx, cfg.Source, srcOpts)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	hash := sha256.New()
	tee := io.TeeReader(rc, hash)
	res, err := registry.Walk(tee)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cfg.Source, err)
	}
	// Hash the whole source, not just the part before the marker.
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cfg.Source, err)
	}

	fields := logrus.Fields{
		"source":  cfg.Source,
		"vendors": res.Summary.Vendors,
		"devices": res.Summary.Devices,
		"rows":    len(res.Rows),
	}
	if !res.MarkerSeen {
		log.WithFields(fields).Warnf("end-of-list marker %q not found; the registry format may have changed", registry.EndOfListMarker)
	}

	p := &Parsed{
		Table:      table.New(res.Rows),
		Summary:    res.Summary,
		MarkerSeen: res.MarkerSeen,
		Lines:      res.Lines,
		SHA256:     hex.EncodeToString(hash.Sum(nil)),
		Source:     info,
	}
	if !p.Table.IsSorted() {
		log.WithFields(fields).Warn("registry is not in (vendor, device) order; sorting")
		p.Table.Sort()
		p.Resorted = true
	}
	if err := p.Table.SelfTest(); err != nil {
		return nil, err
	}

	log.WithFields(fields).Debug("registry parsed")
	return p, nil
}

// Run loads the registry, renders both artifacts and writes them. Either
// both files are written or neither is.
func Run(ctx context.Context, opts Options) (*Report, error) {
	p, err := Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	return Emit(p, opts)
}

// Emit renders and writes the artifacts for an already loaded table, then
// records it in opts.DB when one is set.
func Emit(p *Parsed, opts Options) (*Report, error) {
	cfg := opts.Config
	log := opts.logger()

	generatedAt := opts.now()
	art, err := emit.Render(p.Table.Rows(), p.Summary, emit.Options{
		Naming:      cfg.Naming,
		Generator:   opts.Generator,
		GeneratedAt: generatedAt,
		HeaderFile:  cfg.Output.HeaderFile,
	})
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Parsed:     p,
		DataPath:   cfg.SourcePath(),
		HeaderPath: cfg.HeaderPath(),
		DataSize:   int64(len(art.Data)),
		HeaderSize: int64(len(art.Interface)),
	}
	err = writeFiles(cfg.Output.Dir, []file{
		{path: rep.DataPath, data: art.Data},
		{path: rep.HeaderPath, data: art.Interface},
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"data": rep.DataPath, "header": rep.HeaderPath}).Info("artifacts written")

	if opts.DB != nil {
		gen := &db.Generation{
			Source:       cfg.Source,
			SourceSHA256: p.SHA256,
			Vendors:      p.Summary.Vendors,
			Devices:      p.Summary.Devices,
			MarkerSeen:   p.MarkerSeen,
			DataPath:     rep.DataPath,
			HeaderPath:   rep.HeaderPath,
			GeneratedAt:  generatedAt,
		}
		if err := opts.DB.ReplaceTable(gen, p.Table.Rows()); err != nil {
			return rep, fmt.Errorf("artifacts written but database update failed: %w", err)
		}
		rep.Generation = gen
		log.WithFields(logrus.Fields{"db": opts.DB.Path(), "generation": gen.ID}).Info("table stored")
	}

	return rep, nil
}
