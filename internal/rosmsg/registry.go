package rosmsg

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alfredjeanlab/appreg/internal/schema"
)

// ErrUnknownType is returned for type names the registry has no definition for.
var ErrUnknownType = errors.New("unknown type")

//go:embed builtin
var builtinFS embed.FS

// Glob patterns for definition files, relative to a package root.
const (
	msgPattern    = "**/msg/*.msg"
	srvPattern    = "**/srv/*.srv"
	actionPattern = "**/action/*.action"
)

type serviceSpec struct {
	request  *MsgSpec
	response *MsgSpec
}

// Registry is a lookup table of parsed type definitions. It is populated at
// startup and implements schema.Introspector.
type Registry struct {
	mu       sync.RWMutex
	messages map[string]*MsgSpec
	services map[string]serviceSpec
	skipped  []error
}

// Compile-time check that Registry implements schema.Introspector.
var _ schema.Introspector = (*Registry)(nil)

// NewRegistry returns a registry preloaded with the builtin std_msgs and
// actionlib_msgs definitions that generated action types depend on.
func NewRegistry() *Registry {
	r := &Registry{
		messages: make(map[string]*MsgSpec),
		services: make(map[string]serviceSpec),
	}
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(fmt.Sprintf("rosmsg: builtin definitions: %v", err))
	}
	if _, err := r.LoadFS(sub); err != nil {
		panic(fmt.Sprintf("rosmsg: builtin definitions: %v", err))
	}
	if skipped := r.Skipped(); len(skipped) > 0 {
		panic(fmt.Sprintf("rosmsg: builtin definitions: %v", errors.Join(skipped...)))
	}
	return r
}

// AddMessage registers (or replaces) a message definition.
func (r *Registry) AddMessage(spec *MsgSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[spec.Name] = spec
}

// AddService registers (or replaces) a service definition. The request and
// response are also registered as messages.
func (r *Registry) AddService(name string, request, response *MsgSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = serviceSpec{request: request, response: response}
	r.messages[request.Name] = request
	r.messages[response.Name] = response
}

// Message returns the definition for a fully qualified message type.
func (r *Registry) Message(name string) (*MsgSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.messages[name]
	return spec, ok
}

// MessageNames returns all registered message type names, sorted.
func (r *Registry) MessageNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.messages))
	for name := range r.messages {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ServiceNames returns all registered service type names, sorted.
func (r *Registry) ServiceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FieldsOf returns the declared fields of a message type.
func (r *Registry) FieldsOf(_ context.Context, typeName string) ([]schema.Field, error) {
	spec, ok := r.Message(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	return slices.Clone(spec.Fields), nil
}

// RequestResponseFieldsOf returns the request and response fields of a
// service type.
func (r *Registry) RequestResponseFieldsOf(_ context.Context, serviceType string) ([]schema.Field, []schema.Field, error) {
	r.mu.RLock()
	srv, ok := r.services[serviceType]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownType, serviceType)
	}
	return slices.Clone(srv.request.Fields), slices.Clone(srv.response.Fields), nil
}

// LoadPackagePath loads every package root in a ROS_PACKAGE_PATH style list.
// Roots that do not exist are skipped. It returns the number of definition
// files loaded.
func (r *Registry) LoadPackagePath(list string) (int, error) {
	total := 0
	for _, root := range filepath.SplitList(list) {
		if root == "" {
			continue
		}
		if _, err := os.Stat(root); err != nil {
			slog.Warn("skipping package root", "root", root, "err", err)
			continue
		}
		n, err := r.LoadFS(os.DirFS(root))
		if err != nil {
			return total, fmt.Errorf("load %s: %w", root, err)
		}
		total += n
	}
	return total, nil
}

// LoadFS parses every .msg, .srv and .action file under fsys. The package of
// a definition is the directory containing its msg/, srv/ or action/ folder.
//
// A file that cannot be read or parsed is logged, recorded in Skipped and
// left out; types depending on it fail to resolve on their own. The returned
// count covers the files that were loaded.
func (r *Registry) LoadFS(fsys fs.FS) (int, error) {
	loaded := 0
	for _, pattern := range []string{msgPattern, srvPattern, actionPattern} {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return loaded, fmt.Errorf("glob %s: %w", pattern, err)
		}
		slices.Sort(matches)
		for _, file := range matches {
			if err := r.loadFile(fsys, file); err != nil {
				slog.Warn("skipping definition", "file", file, "err", err)
				r.mu.Lock()
				r.skipped = append(r.skipped, err)
				r.mu.Unlock()
				continue
			}
			loaded++
		}
	}
	return loaded, nil
}

// Skipped returns the errors of every definition file left out so far.
func (r *Registry) Skipped() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.skipped)
}

func (r *Registry) loadFile(fsys fs.FS, file string) error {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	pkg := path.Base(path.Dir(path.Dir(file)))
	ext := path.Ext(file)
	name := strings.TrimSuffix(path.Base(file), ext)

	switch ext {
	case ".msg":
		spec, err := ParseMessage(pkg, name, string(data))
		if err != nil {
			return err
		}
		r.AddMessage(spec)
	case ".srv":
		req, resp, err := ParseService(pkg, name, string(data))
		if err != nil {
			return err
		}
		r.AddService(pkg+"/"+name, req, resp)
	case ".action":
		specs, err := ParseAction(pkg, name, string(data))
		if err != nil {
			return err
		}
		for _, spec := range specs {
			r.AddMessage(spec)
		}
	}
	return nil
}
