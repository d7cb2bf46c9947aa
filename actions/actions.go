package actions

// The action registry resolves CKAN-style action names (e.g. "package_show")
// to handlers, which are invoked with a caller context and keyword-style
// parameters. The HTTP layer and the tests both go through Call, so the
// actions behave identically however they're reached.

import (
	"bytes"
	"io"
	"slices"
)

// the scope in which an action executes
type Context struct {
	// the acting user ("" for anonymous calls)
	User string
	// true if the acting user may administer the whole catalog
	Sysadmin bool
}

// keyword-style action parameters
type Params map[string]any

// a registered action handler
type ActionFunc func(ctx Context, params Params) (any, error)

// we maintain a table of action handlers, identified by their names
var allActions = make(map[string]ActionFunc)

// registers an action handler under the given name
func Register(name string, action ActionFunc) error {
	if _, found := allActions[name]; found {
		return &AlreadyRegisteredError{Action: name}
	}
	allActions[name] = action
	return nil
}

// resolves the named action and invokes it with the given context and
// parameters
func Call(name string, ctx Context, params Params) (any, error) {
	action, found := allActions[name]
	if !found {
		return nil, &NotFoundError{Action: name}
	}
	if params == nil {
		params = Params{}
	}
	return action(ctx, params)
}

// returns the names of all registered actions, sorted alphabetically
func Names() []string {
	names := make([]string, 0, len(allActions))
	for name := range allActions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func init() {
	Register("package_create", packageCreate)
	Register("package_show", packageShow)
	Register("package_list", packageList)
	Register("package_delete", packageDelete)
	Register("organization_create", organizationCreate)
	Register("organization_show", organizationShow)
	Register("package_create_from_datapackage", packageCreateFromDataPackage)
}

// fishes a string parameter out of the given Params ("" if absent)
func stringParam(params Params, key string) string {
	if value, found := params[key]; found {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}

// fishes a boolean parameter out of the given Params, accepting the string
// forms CKAN clients send ("true", "True", "1")
func boolParam(params Params, key string) bool {
	switch value := params[key].(type) {
	case bool:
		return value
	case string:
		return value == "true" || value == "True" || value == "1"
	}
	return false
}

// fishes an uploaded file out of the given Params (nil if absent)
func readerParam(params Params, key string) io.Reader {
	switch value := params[key].(type) {
	case io.Reader:
		return value
	case []byte:
		return bytes.NewReader(value)
	}
	return nil
}
