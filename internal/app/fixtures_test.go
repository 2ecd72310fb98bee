package service_test

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/okian/festa/internal/adapters/artifact"
)

// The worked example: A and C sit in district 9, B and D in district 1.
const fixtureCSV = `contentid,title,sigungucode,overview,eventstartdate,eventenddate,addr1,firstimage,mapx,mapy
A,Lantern Festival,9,Lights on the river,20240501,20240510,Jung-gu,http://img/a.jpg,126.98,37.56
B,Jazz Night,1,,20240601,20240602,Jongno-gu,,,
C,Kimchi Fair,9,Tasting,,,Jung-gu,,126.99,37.55
D,Book Market,1,,,,Jongno-gu,,,
`

var fixtureMatrix = []float64{
	1.0, 0.8, 0.6, 0.4,
	0.8, 1.0, 0.3, 0.2,
	0.6, 0.3, 1.0, 0.5,
	0.4, 0.2, 0.5, 1.0,
}

type fixture struct {
	catalog string
	matrix  string
	mapping string
}

func writeFixture(t *testing.T, mapping any) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		catalog: filepath.Join(dir, "festivals.csv"),
		matrix:  filepath.Join(dir, "cosine_sim.npy"),
		mapping: filepath.Join(dir, "id_to_index.json"),
	}
	if err := os.WriteFile(f.catalog, []byte(fixtureCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	mf, err := os.Create(f.matrix)
	if err != nil {
		t.Fatal(err)
	}
	if err := artifact.WriteNPY(mf, &artifact.Matrix{Dim: 4, Data: fixtureMatrix}); err != nil {
		t.Fatal(err)
	}
	if err := mf.Close(); err != nil {
		t.Fatal(err)
	}

	if mapping == nil {
		mapping = map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}
	}
	raw, err := json.Marshal(mapping)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.mapping, raw, 0o600); err != nil {
		t.Fatal(err)
	}
	return f
}
