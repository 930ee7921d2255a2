package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/cashvision/common"
)

func TestBanknoteClasses(t *testing.T) {
	require.Equal(t, 5, BanknoteClasses.Len())
	assert.Equal(t, "billete_10000", BanknoteClasses.Label(3))
	assert.Equal(t, "unknown_5", BanknoteClasses.Label(5))
	assert.Equal(t, "unknown_-1", BanknoteClasses.Label(-1))

	idx, err := BanknoteClasses.Index("billete_20000")
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	_, err = BanknoteClasses.Index("billete_500")
	assert.Error(t, err)

	assert.Contains(t, BanknoteClasses.String(), "2\tbillete_5000\n")
}

func TestParseClassSet(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    []string
		wantErr bool
	}{
		{
			name: "list form",
			yaml: "path: ../datasets\nnc: 2\nnames: ['billete_1000', 'billete_2000']\n",
			want: []string{"billete_1000", "billete_2000"},
		},
		{
			name: "map form",
			yaml: "names:\n  1: billete_2000\n  0: billete_1000\n  2: billete_5000\n",
			want: []string{"billete_1000", "billete_2000", "billete_5000"},
		},
		{
			name:    "map with a gap",
			yaml:    "names:\n  0: a\n  2: c\n",
			wantErr: true,
		},
		{
			name:    "missing names",
			yaml:    "nc: 3\n",
			wantErr: true,
		},
		{
			name:    "empty list",
			yaml:    "names: []\n",
			wantErr: true,
		},
		{
			name:    "scalar names",
			yaml:    "names: banknotes\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseClassSet([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.Labels())
		})
	}
}

func TestLoadClassSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names: [billete_1000, billete_20000]\n"), 0o644))

	set, err := LoadClassSet(path)
	require.NoError(t, err)
	assert.Equal(t, path, set.Name)
	assert.Equal(t, 2, set.Len())

	_, err = LoadClassSet(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, common.ErrFileNotFound))
}
