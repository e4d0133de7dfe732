// Package generator runs the generate pipeline: decode, validate, render,
// check, commit. Rejections happen before anything touches the filesystem.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/codegen"
	"github.com/matthewbaird/dashgen/internal/crud"
	"github.com/matthewbaird/dashgen/internal/event"
	"github.com/matthewbaird/dashgen/internal/naming"
	"github.com/matthewbaird/dashgen/internal/schema"
	"github.com/matthewbaird/dashgen/internal/writer"
)

// Config wires a Service. Events and Modules are optional.
type Config struct {
	Writer  *writer.Writer
	Schema  schema.Options
	Events  event.Publisher
	Modules *crud.Registry // receives every committed module
	Log     logrus.FieldLogger
}

// Service generates modules into the writer's project root.
type Service struct {
	writer  *writer.Writer
	opts    schema.Options
	events  event.Publisher
	modules *crud.Registry
	log     logrus.FieldLogger
}

func New(cfg Config) *Service {
	s := &Service{
		writer:  cfg.Writer,
		opts:    cfg.Schema,
		events:  cfg.Events,
		modules: cfg.Modules,
		log:     cfg.Log,
	}
	if s.events == nil {
		s.events = event.Discard
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// Result is the outcome of a successful Generate or Preview.
type Result struct {
	Input     *schema.TemplateInput
	Artifacts []codegen.Artifact
	Paths     []string // project-relative, in artifact order
}

// Decode loads and validates raw with the service options.
func (s *Service) Decode(raw []byte, format schema.Format) (*schema.TemplateInput, error) {
	in, err := schema.Load(raw, format)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(in, s.opts); err != nil {
		return in, err
	}
	in.EnsureUID()
	return in, nil
}

// Preview renders and checks raw without writing anything.
func (s *Service) Preview(_ context.Context, raw []byte, format schema.Format) (*Result, error) {
	in, err := s.Decode(raw, format)
	if err != nil {
		return nil, err
	}
	return s.render(in)
}

func (s *Service) render(in *schema.TemplateInput) (*Result, error) {
	arts, err := codegen.Render(in)
	if err != nil {
		return nil, fmt.Errorf("rendering: %w", err)
	}
	if err := codegen.Check(arts); err != nil {
		return nil, err
	}
	paths := make([]string, len(arts))
	for i, a := range arts {
		paths[i] = a.Path
	}
	return &Result{Input: in, Artifacts: arts, Paths: paths}, nil
}

// Generate renders raw and commits every artifact under the project root.
// The outcome is published as a GenerationEvent either way.
func (s *Service) Generate(ctx context.Context, raw []byte, format schema.Format) (*Result, error) {
	start := time.Now()
	in, err := s.Decode(raw, format)
	if err != nil {
		s.fail(ctx, moduleInfo(in), err, time.Since(start))
		return nil, err
	}
	info := moduleInfo(in)
	log := s.log.WithFields(logrus.Fields{"uid": info.UID, "module": info.Module})

	res, err := s.render(in)
	if err != nil {
		s.fail(ctx, info, err, time.Since(start))
		return nil, err
	}
	if err := s.writer.Commit(res.Artifacts); err != nil {
		s.fail(ctx, info, err, time.Since(start))
		return nil, err
	}
	took := time.Since(start)
	log.WithFields(logrus.Fields{"artifacts": len(res.Paths), "took": took}).Info("module generated")
	s.events.Publish(ctx, event.NewGenerationSucceeded(info, res.Paths, took))

	if s.modules != nil {
		if _, err := s.modules.Register(ctx, in); err != nil {
			// The files are written; only the runtime preview is missing.
			log.WithError(err).Warn("registering generated module")
		}
	}
	return res, nil
}

func (s *Service) fail(ctx context.Context, info event.ModuleInfo, err error, took time.Duration) {
	status := event.StatusFailed
	if IsInputError(err) {
		status = event.StatusRejected
	}
	s.log.WithError(err).WithFields(logrus.Fields{"module": info.Module, "status": status}).Warn("generation did not complete")
	s.events.Publish(ctx, event.NewGenerationFailed(info, status, err, took))
}

// IsInputError reports whether err was caused by the request rather than by
// the server.
func IsInputError(err error) bool {
	var verr *schema.ValidationError
	return errors.As(err, &verr)
}

func moduleInfo(in *schema.TemplateInput) event.ModuleInfo {
	if in == nil {
		return event.ModuleInfo{}
	}
	info := event.ModuleInfo{UID: in.UID, TemplateName: in.TemplateName}
	if in.NamingConvention.PluralLower != "" {
		info.Module = naming.RouteSegment(in.NamingConvention.PluralLower)
	}
	return info
}
