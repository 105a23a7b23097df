//go:build !embed_model

package provider

import "io/fs"

// embeddedModelFS is empty without the embed_model build tag; the provider
// falls back to model files on disk.
var embeddedModelFS fs.FS

const hasEmbeddedModel = false
