package qns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `dataset,cluster,dbtype,node,host,port,port_env,env
EMR,SER,H,1,reg1.example.com,5100,EMR_PORT,prod
EMR,SER,H,2,reg2.example.com,5101,EMR_PORT,prod
`

func writeRegistry(t *testing.T, market, env, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, market+"_"+env+".csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return dir
}

func TestLoadNodes(t *testing.T) {
	dir := writeRegistry(t, "fx", "prod", sampleCSV)
	nodes, err := LoadNodes("fx", "prod", dir)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "EMR", nodes[0].Dataset)
	assert.Equal(t, "reg1.example.com", nodes[0].Host)
	assert.Equal(t, 5100, nodes[0].Port)
	assert.Equal(t, "prod", nodes[1].Env)
}

func TestLoadNodesCaseInsensitiveName(t *testing.T) {
	dir := writeRegistry(t, "fx", "prod", sampleCSV)
	nodes, err := LoadNodes("FX", "PROD", dir)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestLoadNodesMissingFile(t *testing.T) {
	_, err := LoadNodes("fx", "prod", t.TempDir())
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLoadNodesMissingColumns(t *testing.T) {
	dir := writeRegistry(t, "fx", "prod", "dataset,cluster\nEMR,SER\n")
	_, err := LoadNodes("fx", "prod", dir)
	require.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "missing columns")
}

func TestLoadNodesBadPort(t *testing.T) {
	bad := `dataset,cluster,dbtype,node,host,port,port_env,env
EMR,SER,H,1,reg1,notaport,EMR_PORT,prod
`
	dir := writeRegistry(t, "fx", "prod", bad)
	_, err := LoadNodes("fx", "prod", dir)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLoadNodesNoDataRows(t *testing.T) {
	dir := writeRegistry(t, "fx", "prod", "dataset,cluster,dbtype,node,host,port,port_env,env\n")
	_, err := LoadNodes("fx", "prod", dir)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestServiceInfoFQN(t *testing.T) {
	svc := ServiceInfo{Dataset: "EMR", Cluster: "SER", DBType: "H", Node: "1", SSL: "TLS"}
	assert.Equal(t, "EMR.SER.H.1", svc.FQN())
	assert.True(t, svc.TLS())
	assert.False(t, ServiceInfo{SSL: "plain"}.TLS())
}

func TestBuildSvcsQuery(t *testing.T) {
	assert.Equal(t, ".qns.registry", buildSvcsQuery(nil))
	assert.Equal(t, ".qns.svcs`EMR`SER`H", buildSvcsQuery([]string{"EMR", "SER", "H"}))
}
