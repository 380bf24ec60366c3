package plugin

import (
	"bytes"
	"container/list"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/modpack/internal/model"
)

// Evaluate compiles a plugin script and returns the plugin it describes.
//
// The script is rejected, and nothing is returned, if it fails to compile
// or evaluate, if its top level is not a struct, or if it lacks a string
// id, a string name, a machines list or a processors list. The returned
// plugin carries the script verbatim in ScriptContent.
func Evaluate(script string) (*model.Plugin, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(script, cue.Filename("plugin.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError("script", err)
	}

	if v.IncompleteKind() != cue.StructKind {
		return nil, &LoadError{
			Field:   "script",
			Message: fmt.Sprintf("must evaluate to a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	p := &model.Plugin{ScriptContent: script}

	var err error
	if p.ID, err = requiredString(v, "id"); err != nil {
		return nil, err
	}
	if p.Name, err = requiredString(v, "name"); err != nil {
		return nil, err
	}
	if p.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}
	if p.Version, err = optionalString(v, "version"); err != nil {
		return nil, err
	}

	machinesVal, err := requiredList(v, "machines")
	if err != nil {
		return nil, err
	}
	processorsVal, err := requiredList(v, "processors")
	if err != nil {
		return nil, err
	}

	if p.Machines, err = parseMachines(machinesVal); err != nil {
		return nil, err
	}
	// Every handler of this plugin shares ctx, so they share one lock.
	if p.Processors, err = parseProcessors(processorsVal, new(sync.Mutex)); err != nil {
		return nil, err
	}

	return p, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &LoadError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(field, err)
	}
	if s == "" {
		return "", &LoadError{Field: field, Message: field + " must be non-empty", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(field, err)
	}
	return s, nil
}

func requiredList(v cue.Value, field string) (cue.Value, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return cue.Value{}, &LoadError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	if fv.IncompleteKind() != cue.ListKind {
		return cue.Value{}, &LoadError{
			Field:   field,
			Message: fmt.Sprintf("must be a list, got %v", fv.IncompleteKind()),
			Pos:     fv.Pos(),
		}
	}
	return fv, nil
}

// parseMachines decodes the machines list. Every machine needs an id.
func parseMachines(v cue.Value) ([]model.MachineDefinition, error) {
	machines := []model.MachineDefinition{}
	if err := v.Decode(&machines); err != nil {
		return nil, formatCUEError("machines", err)
	}
	if machines == nil {
		machines = []model.MachineDefinition{}
	}
	for i, m := range machines {
		if m.ID == "" {
			return nil, &LoadError{
				Field:   fmt.Sprintf("machines[%d].id", i),
				Message: "machine id is required",
				Pos:     v.Pos(),
			}
		}
	}
	return machines, nil
}

// parseProcessors extracts processors. Each needs an id and either a
// template string or a handler struct.
func parseProcessors(v cue.Value, mu *sync.Mutex) ([]model.RecipeProcessor, error) {
	processors := []model.RecipeProcessor{}

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError("processors", err)
	}

	for i := 0; iter.Next(); i++ {
		pv := iter.Value()
		field := fmt.Sprintf("processors[%d]", i)

		proc := model.RecipeProcessor{}
		if proc.ID, err = requiredString(pv, "id"); err != nil {
			return nil, prefixField(field, err)
		}
		if proc.Name, err = optionalString(pv, "name"); err != nil {
			return nil, prefixField(field, err)
		}
		if proc.Description, err = optionalString(pv, "description"); err != nil {
			return nil, prefixField(field, err)
		}
		if proc.Template, err = optionalString(pv, "template"); err != nil {
			return nil, prefixField(field, err)
		}

		handlerVal := pv.LookupPath(cue.ParsePath("handler"))
		if handlerVal.Exists() {
			proc.Handler, err = compileHandler(field+".handler", handlerVal, mu)
			if err != nil {
				return nil, err
			}
		}

		if proc.Handler == nil && proc.Template == "" {
			return nil, &LoadError{
				Field:   field,
				Message: fmt.Sprintf("processor %q needs a template or a handler", proc.ID),
				Pos:     pv.Pos(),
			}
		}

		processors = append(processors, proc)
	}

	return processors, nil
}

func prefixField(prefix string, err error) error {
	if le, ok := err.(*LoadError); ok {
		return &LoadError{Field: prefix + "." + le.Field, Message: le.Message, Pos: le.Pos}
	}
	return err
}

// compileHandler wraps a handler struct as a RecipeHandler.
//
// The handler declares recipe, machine and resources as inputs and a
// string out field computed from them. Each call unifies the inputs into
// the struct and reads out. Values built from one cue.Context are not safe
// for concurrent use, so calls hold mu, which every handler of the same
// plugin shares.
func compileHandler(field string, hv cue.Value, mu *sync.Mutex) (model.RecipeHandler, error) {
	if hv.IncompleteKind() != cue.StructKind {
		return nil, &LoadError{Field: field, Message: "handler must be a struct", Pos: hv.Pos()}
	}
	if !hv.LookupPath(cue.ParsePath("out")).Exists() {
		return nil, &LoadError{Field: field, Message: "handler must declare an out field", Pos: hv.Pos()}
	}

	return func(recipe model.Recipe, machine model.MachineDefinition, resources []model.Resource) (string, error) {
		in, err := handlerInput(recipe, machine, resources)
		if err != nil {
			return "", err
		}

		mu.Lock()
		defer mu.Unlock()

		filled := hv.
			FillPath(cue.ParsePath("recipe"), in.Recipe).
			FillPath(cue.ParsePath("machine"), in.Machine).
			FillPath(cue.ParsePath("resources"), in.Resources)

		out, err := filled.LookupPath(cue.ParsePath("out")).String()
		if err != nil {
			return "", formatCUEError("out", err)
		}
		return out, nil
	}, nil
}

type handlerArgs struct {
	Recipe    any `json:"recipe"`
	Machine   any `json:"machine"`
	Resources any `json:"resources"`
}

// handlerInput converts the handler arguments to their JSON shape with
// integral numbers as ints, so 200 interpolates as "200" and 0.5 as "0.5".
func handlerInput(recipe model.Recipe, machine model.MachineDefinition, resources []model.Resource) (handlerArgs, error) {
	data, err := json.Marshal(handlerArgs{Recipe: recipe, Machine: machine, Resources: resources})
	if err != nil {
		return handlerArgs{}, fmt.Errorf("encode handler input: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var args handlerArgs
	if err := dec.Decode(&args); err != nil {
		return handlerArgs{}, fmt.Errorf("decode handler input: %w", err)
	}
	args.Recipe = intNumbers(args.Recipe)
	args.Machine = intNumbers(args.Machine)
	args.Resources = intNumbers(args.Resources)
	return args, nil
}

func intNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = intNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = intNumbers(e)
		}
		return x
	}
	return v
}

// DefaultCacheSize is the number of evaluated scripts a Loader keeps.
const DefaultCacheSize = 64

// Loader evaluates scripts and caches the result by script digest, so a
// peer re-sending an unchanged plugin does not recompile it. The least
// recently used script is evicted once the cache is full.
type Loader struct {
	mu      sync.Mutex
	maxSize int
	cache   map[string]*list.Element
	lru     *list.List
}

type cacheEntry struct {
	key    string
	plugin *model.Plugin
}

// NewLoader creates a Loader holding up to DefaultCacheSize scripts.
func NewLoader() *Loader {
	return NewLoaderSize(DefaultCacheSize)
}

// NewLoaderSize creates a Loader holding up to size scripts. size < 1 is
// treated as 1.
func NewLoaderSize(size int) *Loader {
	if size < 1 {
		size = 1
	}
	return &Loader{
		maxSize: size,
		cache:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Evaluate is the cached form of the package-level Evaluate.
// Failed evaluations are not cached.
func (l *Loader) Evaluate(script string) (*model.Plugin, error) {
	key := Digest(script)

	if cached, ok := l.get(key); ok {
		cp := *cached
		return &cp, nil
	}

	p, err := Evaluate(script)
	if err != nil {
		return nil, err
	}
	l.put(key, p)

	cp := *p
	return &cp, nil
}

func (l *Loader) get(key string) (*model.Plugin, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, ok := l.cache[key]
	if !ok {
		return nil, false
	}
	l.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).plugin, true
}

func (l *Loader) put(key string, p *model.Plugin) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.cache[key]; ok {
		elem.Value.(*cacheEntry).plugin = p
		l.lru.MoveToFront(elem)
		return
	}

	l.cache[key] = l.lru.PushFront(&cacheEntry{key: key, plugin: p})
	for l.lru.Len() > l.maxSize {
		oldest := l.lru.Back()
		l.lru.Remove(oldest)
		delete(l.cache, oldest.Value.(*cacheEntry).key)
	}
}

// Len returns the number of cached scripts.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lru.Len()
}
