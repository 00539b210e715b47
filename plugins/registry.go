package plugins

import (
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const logTag = "[registry]"

// plugins is a map of a unique identifier, usually the plugin name,
// to the Plugin. So, in practice all plugins must have a name,
// preferably following the same practice while naming a package.
var plugins = make(map[string]Plugin)

// Plugin is a type that holds information about the plugin.
type Plugin interface {
	// Name returns the name of the plugin. Name of the plugin must be
	// unique as it is the name of the plugin that is used as a key
	// to identify a plugin in the plugins map.
	Name() string

	// InitFunc returns the plugin's setup function that is executed
	// before the plugin routes are loaded in the router.
	InitFunc() error

	// Routes returns the http routes that a plugin handles or is
	// associated with.
	Routes() []Route
}

// RegisterPlugin plugs in plugin. All plugins must have a name:
// preferably lowercase and one word. The name of the plugin must
// be unique.
func RegisterPlugin(p Plugin) {
	name := p.Name()
	if name == "" {
		panic("plugin must have a name.")
	}
	if _, dup := plugins[name]; dup {
		panic("plugin named " + name + " is already registered.")
	}
	plugins[name] = p
}

// LoadPlugin executes the plugin's initFunc to ensure it makes all the
// initializations before the plugin is functional and then registers
// the routes associated with that plugin to the router.
func LoadPlugin(router *mux.Router, p Plugin) error {
	log.Println(logTag, ": Initializing plugin:", p.Name())
	err := p.InitFunc()
	if err != nil {
		return err
	}
	return LoadRoutes(router, p.Routes())
}

// LoadRoutes registers routes to the router.
func LoadRoutes(router *mux.Router, routes []Route) error {
	for _, r := range routes {
		err := router.Methods(r.Methods...).
			Name(r.Name).
			Path(r.Path).
			HandlerFunc(r.HandlerFunc).
			GetError()
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadPlugins loads every registered plugin in name order.
func LoadPlugins(router *mux.Router) error {
	for _, p := range ListPlugins() {
		if err := LoadPlugin(router, p); err != nil {
			return err
		}
	}
	return nil
}

// ListPluginsStr returns a string listing the registered plugins.
func ListPluginsStr() string {
	str := "Registered plugins:\n"
	pl := ListPlugins()
	for i := 0; i < len(pl); i++ {
		str += "\t" + strconv.Itoa(i+1) + ". " + pl[i].Name() + "\n"
	}
	return str
}

// ListPlugins returns the list of plugins that are currently registered,
// sorted by name.
func ListPlugins() []Plugin {
	var list []Plugin
	for _, p := range plugins {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}
