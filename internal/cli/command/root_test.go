package command

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/tssd/internal/core/behaviour"
	"github.com/yndnr/tssd/internal/core/domain"
)

func TestParse_Defaults(t *testing.T) {
	args, err := Parse([]string{"tssd"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, uint16(50051), args.Port)
	assert.True(t, args.Behaviour.IsHonest())
	assert.Empty(t, args.ConfigFile)
	assert.Empty(t, args.Overrides, "defaults must not override file or env values")
}

func TestParse_Port(t *testing.T) {
	args, err := Parse([]string{"tssd", "--port", "6000"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, uint16(6000), args.Port)
	assert.Equal(t, 6000, args.Overrides["server.port"])

	args, err = Parse([]string{"tssd", "-p", "0"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), args.Port)
}

func TestParse_BadPort(t *testing.T) {
	for _, p := range []string{"65536", "-1", "abc", "", "50051x"} {
		t.Run(p, func(t *testing.T) {
			_, err := Parse([]string{"tssd", "--port", p}, io.Discard)
			assert.ErrorIs(t, err, domain.ErrParse)
		})
	}
}

func TestParse_Overrides(t *testing.T) {
	args, err := Parse([]string{
		"tssd",
		"--config", "/etc/tssd/tssd.yaml",
		"--data-dir", "/tmp/tssd",
		"--in-memory",
		"--seed-mode", "create",
		"--log-level", "debug",
		"--log-format", "text",
		"--metrics-addr", "127.0.0.1:9090",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "/etc/tssd/tssd.yaml", args.ConfigFile)
	assert.Equal(t, map[string]any{
		"storage.data_dir":    "/tmp/tssd",
		"storage.in_memory":   true,
		"seed.mode":           "create",
		"log.level":           "debug",
		"log.format":          "text",
		"server.metrics_addr": "127.0.0.1:9090",
	}, args.Overrides)
}

func TestParse_UnexpectedArgument(t *testing.T) {
	_, err := Parse([]string{"tssd", "extra"}, io.Discard)
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestParsePort(t *testing.T) {
	p, err := ParsePort("65535")
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), p)

	_, err = ParsePort("65536")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestParseBehaviour(t *testing.T) {
	b, err := ParseBehaviour("R2BadMta", "3")
	require.NoError(t, err)
	assert.Equal(t, behaviour.Behaviour{Kind: behaviour.R2BadMta, Victim: 3}, b)

	b, err = ParseBehaviour("Honest", "")
	require.NoError(t, err)
	assert.True(t, b.IsHonest())

	b, err = ParseBehaviour("R3BadProof", "7")
	require.NoError(t, err)
	assert.Equal(t, uint(0), b.Victim, "stage deviations carry no victim")

	_, err = ParseBehaviour("R9Nope", "0")
	assert.ErrorIs(t, err, domain.ErrParse)

	_, err = ParseBehaviour("R2BadMta", "-1")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestParseBehaviour_AllNames(t *testing.T) {
	for _, name := range behaviour.Names() {
		_, err := ParseBehaviour(name, "1")
		assert.NoError(t, err, name)
	}
}
