package storage

import (
	"bytes"
	"os"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestStoreFS(t *testing.T) {
	store, err := NewStoreFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)

	require.NoError(t, PutFile(store, "models/run-1.onnx", bytes.NewReader([]byte("model bytes"))))

	content, err := ReadFile(store, "models/run-1.onnx")
	require.NoError(t, err)
	require.Equal(t, []byte("model bytes"), content)

	obj, err := store.Open("models/run-1.onnx")
	require.NoError(t, err)
	require.Equal(t, int64(11), obj.Size)
	obj.Reader.Close()

	require.NoError(t, store.Delete("models/run-1.onnx"))
	_, err = store.Open("models/run-1.onnx")
	require.True(t, os.IsNotExist(err))
}

func TestStoreFSRejectsTraversal(t *testing.T) {
	store, err := NewStoreFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)

	_, err = store.Put("../escape")
	require.Error(t, err)
	_, err = store.Open("../../etc/passwd")
	require.Error(t, err)
	require.Error(t, store.Delete("a/../../b"))
}
