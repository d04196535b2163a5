package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestLedgerAlertRules(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "ledger.yml"))
	require.NoError(t, err)

	var spec alertSpec
	require.NoError(t, yaml.Unmarshal(data, &spec))
	require.Len(t, spec.Groups, 1)
	require.Equal(t, "ledger", spec.Groups[0].Name)

	severities := map[string]string{
		"LedgerOutOfBalance":    "critical",
		"InventoryBalanceDrift": "warning",
		"LedgerJobFailing":      "warning",
		"HighErrorRate":         "critical",
	}
	rules := spec.Groups[0].Rules
	require.Len(t, rules, len(severities))
	for _, rule := range rules {
		want, ok := severities[rule.Alert]
		require.True(t, ok, "unexpected rule %q", rule.Alert)
		require.Equal(t, want, rule.Labels["severity"], rule.Alert)
		require.NotEmpty(t, rule.Expr, rule.Alert)
		require.NotEmpty(t, rule.For, rule.Alert)
		require.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		require.NotEmpty(t, rule.Annotations["description"], rule.Alert)
	}
}
