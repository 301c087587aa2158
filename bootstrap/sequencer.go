package bootstrap

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// Registry is the part of the settings registry that the sequencer drives.
type Registry interface {
	Initialize(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Step is one stage of the startup sequence.
type Step struct {
	// Name identifies the step in log messages and errors.
	Name string
	// Run brings one component to a usable state. An error means the component is usable but
	// degraded; it does not stop later steps.
	Run func(ctx context.Context) error
}

// StepError describes the failure of one step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("startup step %q failed: %s", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Sequencer runs the registry initialization followed by each domain step, in a fixed order. A
// failing step is logged and recorded, and every later step still runs.
type Sequencer struct {
	registry Registry
	steps    []Step
	loggers  ldlog.Loggers
}

// NewSequencer creates a Sequencer that runs steps in the order given, after the registry.
func NewSequencer(registry Registry, loggers ldlog.Loggers, steps ...Step) *Sequencer {
	s := &Sequencer{
		registry: registry,
		steps:    steps,
		loggers:  loggers,
	}
	s.loggers.SetPrefix("Bootstrap:")
	return s
}

// StepNames returns the names of the steps in the order they run, starting with the registry.
func (s *Sequencer) StepNames() []string {
	ret := []string{"registry"}
	for _, step := range s.steps {
		ret = append(ret, step.Name)
	}
	return ret
}

// RunStartup initializes the registry and then runs every step. The returned error, if any, is a
// *multierror.Error listing a *StepError for each failed step. The components are usable either way.
func (s *Sequencer) RunStartup(ctx context.Context) error {
	s.loggers.Info("Starting up")
	return s.run(ctx, s.registry.Initialize)
}

// Resume refreshes the registry, discarding everything it has cached, and then runs every step
// again. Call it whenever the application may have missed changes, for instance after coming back
// to the foreground.
func (s *Sequencer) Resume(ctx context.Context) error {
	s.loggers.Info("Resuming; reloading all settings")
	return s.run(ctx, s.registry.Refresh)
}

// WatchResume calls Resume every time a value arrives on triggers, until the context ends or
// triggers is closed. Triggers that arrive while a resume is in progress, or in a burst, result in a
// single further resume.
func (s *Sequencer) WatchResume(ctx context.Context, triggers <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-triggers:
			if !ok {
				return
			}
		}
	drain:
		for {
			select {
			case _, ok := <-triggers:
				if !ok {
					break drain
				}
			default:
				break drain
			}
		}
		if err := s.Resume(ctx); err != nil && ctx.Err() == nil {
			s.loggers.Warnf("Resume completed with errors: %s", err)
		}
	}
}

func (s *Sequencer) run(ctx context.Context, loadRegistry func(context.Context) error) error {
	var result *multierror.Error
	if err := loadRegistry(ctx); err != nil {
		s.loggers.Warnf("Settings registry did not finish loading: %s", err)
		result = multierror.Append(result, &StepError{Step: "registry", Err: err})
	}
	for _, step := range s.steps {
		if err := step.Run(ctx); err != nil {
			s.loggers.Warnf("Step %q failed: %s", step.Name, err)
			result = multierror.Append(result, &StepError{Step: step.Name, Err: err})
			continue
		}
		if s.loggers.IsDebugEnabled() {
			s.loggers.Debugf("Step %q completed", step.Name)
		}
	}
	return result.ErrorOrNil()
}
