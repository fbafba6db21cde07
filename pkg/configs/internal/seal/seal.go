// Package seal helps to turn marshalled configs into read-only ones.
//
// Helpers panic with the YAML path of a misconfiguration. Load recovers it as an error.
package seal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Marshalled[S any] interface {
	TrySeal(path string) S
}

// misconfig is the panic value of helpers.
type misconfig struct {
	message string
}

func (m misconfig) Error() string {
	return m.message
}

func fail(format string, args ...any) {
	panic(misconfig{message: fmt.Sprintf(format, args...)})
}

func NonNil[T any](v *T, path string) *T {
	if v == nil {
		fail("%s is required", path)
	}
	return v
}

func Required[T comparable](v T, path string) T {
	if v == *new(T) {
		fail("%s is required", path)
	}
	return v
}

func OrDefault[T comparable](v T, def T) T {
	if v == *new(T) {
		return def
	}
	return v
}

// Duration parses a duration like "5s". Empty is def.
func Duration(v string, def time.Duration, path string) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fail("%s can not be parsed: %s", path, err)
	}
	if d < 0 {
		fail("%s should not be negative", path)
	}
	return d
}

// Unmarshal parses YAML into T and seals it.
func Unmarshal[T any, S any, M interface {
	*T
	Marshalled[S]
}](content []byte) (out S, err error) {
	var t T
	if err := yaml.Unmarshal(content, &t); err != nil {
		return out, err
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		mc, ok := r.(misconfig)
		if !ok {
			panic(r)
		}
		err = mc
	}()
	return M(&t).TrySeal("(root)"), nil
}

// Load reads a YAML file, parses it into T and seals it.
func Load[T any, S any, M interface {
	*T
	Marshalled[S]
}](filepath string) (S, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return *new(S), err
	}
	return Unmarshal[T, S, M](content)
}
