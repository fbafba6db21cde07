package args_test

import (
	"errors"
	"flag"
	"io"
	"strconv"
	"testing"

	"github.com/fairtrace/fairtrace/pkg/utils/args"
	"github.com/spf13/pflag"
)

type Kg int

func (k Kg) String() string { return strconv.Itoa(int(k)) + "kg" }

func AsKg(s string) (Kg, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("should be positive")
	}
	return Kg(n), nil
}

func TestValue(t *testing.T) {
	t.Run("when it is not set, it tells so and falls back", func(t *testing.T) {
		v := args.Parser(AsKg)
		if v.IsSet() || v.Get() != 0 || v.String() != "" {
			t.Errorf("unexpected initial state: set=%v value=%v", v.IsSet(), v.Get())
		}
		if got := v.Or(5); got != 5 {
			t.Errorf("Or: %v", got)
		}
	})

	t.Run("when the flag package parses an acceptable value, it is set", func(t *testing.T) {
		v := args.Parser(AsKg)
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.Var(v, "quantity", "")
		if err := fs.Parse([]string{"-quantity", "12"}); err != nil {
			t.Fatal(err)
		}
		if !v.IsSet() || v.Get() != 12 || v.Or(5) != 12 || v.String() != "12kg" {
			t.Errorf("unexpected state: set=%v value=%v", v.IsSet(), v.Get())
		}
	})

	t.Run("when pflag parses an unacceptable value, it is an error", func(t *testing.T) {
		v := args.Parser(AsKg).Named("kg")
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.SetOutput(io.Discard)
		fs.Var(v, "quantity", "")
		if err := fs.Parse([]string{"--quantity", "-3"}); err == nil {
			t.Error("it should fail")
		}
		if v.IsSet() {
			t.Error("it is set")
		}
		if v.Type() != "kg" {
			t.Errorf("type: %s", v.Type())
		}
	})
}

func TestDepth(t *testing.T) {
	for name, testcase := range map[string]struct {
		when    string
		then    int
		str     string
		wantErr bool
	}{
		"when it is a number, it is the depth":    {when: "3", then: 3, str: "3"},
		`when it is "all", it is unlimited`:       {when: "ALL", then: 0, str: "all"},
		"when it is 0, it is unlimited":           {when: "0", then: 0, str: "all"},
		"when it is negative, it is an error":     {when: "-1", wantErr: true},
		"when it is not a number, it is an error": {when: "deep", wantErr: true},
	} {
		t.Run(name, func(t *testing.T) {
			d := args.NewDepth(7)
			err := d.Set(testcase.when)
			if testcase.wantErr {
				if err == nil {
					t.Error("it should fail")
				}
				if d.Int() != 7 {
					t.Errorf("depth is changed: %d", d.Int())
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if d.Int() != testcase.then || d.String() != testcase.str {
				t.Errorf("got %d (%s), want %d (%s)", d.Int(), d.String(), testcase.then, testcase.str)
			}
		})
	}
}
