package container

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasRegistry(t *testing.T) {
	tests := []struct {
		name    string
		setup   [][2]string
		reg     [2]string
		wantErr error
	}{
		{name: "new alias", reg: [2]string{"real", "alias"}},
		{name: "same pair twice", setup: [][2]string{{"real", "alias"}}, reg: [2]string{"real", "alias"}},
		{name: "two cycle", setup: [][2]string{{"real", "alias"}}, reg: [2]string{"alias", "real"}, wantErr: ErrCircularAlias},
		{name: "three cycle", setup: [][2]string{{"a", "b"}, {"b", "c"}}, reg: [2]string{"c", "a"}, wantErr: ErrCircularAlias},
		{name: "conflict", setup: [][2]string{{"x", "alias"}}, reg: [2]string{"y", "alias"}, wantErr: ErrAliasConflict},
		{name: "empty", reg: [2]string{"", "alias"}, wantErr: ErrInvalidDefinition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewAliasRegistry(nil)
			for _, s := range tt.setup {
				require.NoError(t, r.RegisterAlias(s[0], s[1]))
			}
			err := r.RegisterAlias(tt.reg[0], tt.reg[1])
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAliasRegistry_CanonicalName(t *testing.T) {
	r := NewAliasRegistry(nil)
	require.NoError(t, r.RegisterAlias("real", "a1"))
	require.NoError(t, r.RegisterAlias("a1", "a2"))
	require.NoError(t, r.RegisterAlias("a2", "a3"))

	assert.Equal(t, "real", r.CanonicalName("a3"))
	assert.Equal(t, "real", r.CanonicalName("real"))
	assert.Equal(t, "unknown", r.CanonicalName("unknown"))
	assert.Equal(t, []string{"a1", "a2", "a3"}, r.Aliases("real"))
	assert.Equal(t, []string{"a2", "a3"}, r.Aliases("a1"))

	require.NoError(t, r.RemoveAlias("a2"))
	assert.Equal(t, "a2", r.CanonicalName("a3"))
	assert.Equal(t, []string{"a1"}, r.Aliases("real"))
}

func TestAliasRegistry_Concurrent(t *testing.T) {
	r := NewAliasRegistry(nil)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.RegisterAlias("real", "alias-"+string(rune('a'+i%26)))
		}()
		go func() {
			defer wg.Done()
			assert.Equal(t, "real", r.CanonicalName("real"))
		}()
	}
	wg.Wait()
	assert.Len(t, r.Aliases("real"), 26)
}
