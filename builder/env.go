package builder

import (
	"fmt"
	"os"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"omibyte.io/ceiling/codegen"
)

type Env map[string]string

func Environment() Env {
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	// Return the environment
	return map[string]string{
		"CEILINGTARGET":  getenv("CEILINGTARGET", ""),
		"CEILINGOUT":     getenv("CEILINGOUT", cwd),
		"CEILINGPACKAGE": getenv("CEILINGPACKAGE", "app"),
		"CEILINGRUNTIME": getenv("CEILINGRUNTIME", codegen.DefaultRuntime),
	}
}

func (e Env) Print() {
	for _, k := range e.keys() {
		fmt.Printf("set %s=%s\n", k, e[k])
	}
}

func (e Env) Value(key string) string {
	if v, ok := e[key]; ok {
		return v
	}
	return ""
}

func (e Env) List() []string {
	var result []string
	for _, key := range e.keys() {
		result = append(result, fmt.Sprintf("%s=%s", key, e[key]))
	}
	return result
}

func (e Env) keys() []string {
	keys := maps.Keys(e)
	slices.Sort(keys)
	return keys
}

func getenv(key, _default string) (value string) {
	value = os.Getenv(key)
	if len(value) == 0 {
		value = _default
	}
	return value
}
