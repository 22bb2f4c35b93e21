package config

import (
	"reflect"
	"strings"
	"sync"
)

// envBindings maps each variable declared through an env tag to the dotted
// koanf path of its field. Only structs of this package are walked.
var envBindings = sync.OnceValue(func() map[string]string {
	bindings := make(map[string]string)
	bindSection(bindings, reflect.TypeFor[Config](), nil)
	return bindings
})

func bindSection(bindings map[string]string, section reflect.Type, path []string) {
	pkg := section.PkgPath()
	for _, field := range reflect.VisibleFields(section) {
		key := field.Tag.Get("koanf")
		if !field.IsExported() || key == "" || key == "-" {
			continue
		}
		fieldPath := append(path[:len(path):len(path)], key)
		if name := field.Tag.Get("env"); name != "" && name != "-" {
			bindings[name] = strings.Join(fieldPath, ".")
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() == pkg {
			bindSection(bindings, field.Type, fieldPath)
		}
	}
}

// EnvPath returns the config path bound to the environment variable name.
func EnvPath(name string) (string, bool) {
	path, ok := envBindings()[name]
	return path, ok
}
