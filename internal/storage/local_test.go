package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Save(strings.NewReader("fake image bytes"), "cover.png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".png"))

	file, err := store.Open(ref)
	require.NoError(t, err)
	defer file.Close()

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(strings.NewReader("#!/bin/sh"), "script.sh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestOpenRejectsPathTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("../etc/passwd")
	require.Error(t, err)

	err = store.Remove("../../other")
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Save(strings.NewReader("bytes"), "pic.jpg")
	require.NoError(t, err)

	require.NoError(t, store.Remove(ref))

	_, err = store.Open(ref)
	assert.Error(t, err)
}
