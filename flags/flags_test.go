package flags

import (
	"strings"
	"testing"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
			require.True(t, strings.HasPrefix(envFlags[0], EnvVarPrefix+"_"))
			require.Equal(t, opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix), envFlags[0])
		})
	}
}

func TestColorMode(t *testing.T) {
	t.Run("type methods", func(t *testing.T) {
		assert.True(t, ColorAuto.IsValid())
		assert.True(t, ColorAlways.IsValid())
		assert.True(t, ColorNever.IsValid())
		assert.False(t, ColorMode("").IsValid())
		assert.False(t, ColorMode("ALWAYS").IsValid())
	})

	t.Run("validation function", func(t *testing.T) {
		for _, valid := range []string{"auto", "always", "never"} {
			assert.NoError(t, validateColor(valid))
		}
		for _, invalid := range []string{"", "yes", "Never"} {
			err := validateColor(invalid)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "color must be one of")
		}
	})

	t.Run("CLI flag validation", func(t *testing.T) {
		testCases := []struct {
			name        string
			args        []string
			expected    string
			shouldError bool
		}{
			{"always", []string{"app", "--color", "always"}, "always", false},
			{"never", []string{"app", "--color", "never"}, "never", false},
			{"invalid value", []string{"app", "--color", "rainbow"}, "", true},
			{"no flag uses default", []string{"app"}, "auto", false},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				app := &cli.App{
					Flags: []cli.Flag{Color},
					Action: func(ctx *cli.Context) error {
						assert.Equal(t, tc.expected, ctx.String(Color.Name))
						return nil
					},
				}
				err := app.Run(tc.args)
				if tc.shouldError {
					assert.Error(t, err)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})
}

func TestConfigFlagDefault(t *testing.T) {
	app := &cli.App{
		Flags: []cli.Flag{ConfigFile, SummaryTable},
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, "asmtest.json", ctx.String(ConfigFile.Name))
			assert.False(t, ctx.Bool(SummaryTable.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app"}))
}
