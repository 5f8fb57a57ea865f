package service_test

import (
	"os"
	"path/filepath"
	"testing"
)

// matchXML has anchors at 100/2500/3400/5800 and two tagged plays.
const matchXML = `<?xml version="1.0" encoding="utf-8"?>
<file>
  <ALL_INSTANCES>
    <instance><ID>1</ID><code>KICK OFF</code><start>100</start><end>101</end>
      <label><group>PERIODS</group><text>1</text></label></instance>
    <instance><ID>2</ID><code>TACKLE</code><start>130</start><end>134</end>
      <label><group>EQUIPO</group><text>Pumas</text></label>
      <label><group>JUGADOR</group><text>Ana</text></label></instance>
    <instance><ID>3</ID><code>END</code><start>2500</start><end>2501</end>
      <label><group>PERIODS</group><text>1</text></label></instance>
    <instance><ID>4</ID><code>KICK OFF</code><start>3400</start><end>3401</end>
      <label><group>PERIODS</group><text>2</text></label></instance>
    <instance><ID>5</ID><code>PENAL</code><start>3500</start><end>3510</end>
      <label><group>EQUIPO</group><text>Pumas</text></label>
      <label><group>JUGADOR</group><text>Bea</text></label>
      <label><group>DESCRIPTOR</group><text>NEGATIVO</text></label></instance>
    <instance><ID>6</ID><code>END</code><start>5800</start><end>5801</end>
      <label><group>PERIODS</group><text>2</text></label></instance>
  </ALL_INSTANCES>
</file>`

func writeFixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
