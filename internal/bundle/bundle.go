// Package bundle implements the Bundle Installer (component K): pulling
// a system-tier bundle's .ai/ tree from an OCI registry reference,
// resolving it to a content digest, and extracting it under a bundle
// root the Path Resolver (E) can then enumerate. It is the one
// operation in this repository that talks to the network; every other
// component is pure, synchronous logic over the local filesystem.
package bundle

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"gopkg.in/yaml.v3"

	coreerrors "github.com/ryeos/ryekernel/internal/errors"
	"github.com/ryeos/ryekernel/internal/extractor"
)

// manifestSchema is the bundle.yaml validation_schema, expressed with the
// same FieldRule mechanism the Extractor Registry (component D) uses for
// item front-matter, rather than a one-off hand check.
var manifestSchema = extractor.Schema{
	Fields: map[string]extractor.FieldRule{
		"name":                {Required: true, Type: "string"},
		"accepted_categories": {Required: true, Type: "array", Items: &extractor.FieldRule{Type: "string"}},
	},
}

const manifestFile = "bundle.yaml"

// Source records where a bundle's .ai/ tree was pulled from, populated
// only when the bundle was installed via InstallBundle.
type Source struct {
	OCIRef string `yaml:"oci_ref,omitempty"`
	Digest string `yaml:"digest,omitempty"`
}

// Manifest is a bundle root's .ai/bundle.yaml, read by the Path
// Resolver (E) for name and accepted categories, and by this package
// to record provenance.
type Manifest struct {
	Name               string   `yaml:"name"`
	AcceptedCategories []string `yaml:"accepted_categories"`
	Source             *Source  `yaml:"source,omitempty"`
}

// InstallBundle pulls ociRef, verifies it resolves to a single content
// digest, and extracts its layer under destRoot. On any failure,
// destRoot is left exactly as it was found: the image is extracted to a
// sibling temp directory first and only renamed into place once every
// step has succeeded.
func InstallBundle(ociRef, destRoot string, opts ...crane.Option) (*Manifest, error) {
	ref, err := name.ParseReference(ociRef)
	if err != nil {
		return nil, &coreerrors.BundleInstallFailed{Ref: ociRef, Cause: err}
	}

	digest, err := crane.Digest(ref.String(), opts...)
	if err != nil {
		return nil, &coreerrors.BundleInstallFailed{Ref: ociRef, Cause: fmt.Errorf("resolve digest: %w", err)}
	}

	pinnedRef := pinDigest(ref, digest)

	img, err := crane.Pull(pinnedRef, opts...)
	if err != nil {
		return nil, &coreerrors.BundleInstallFailed{Ref: ociRef, Cause: fmt.Errorf("pull image: %w", err)}
	}

	if err := os.MkdirAll(filepath.Dir(destRoot), 0755); err != nil {
		return nil, &coreerrors.BundleInstallFailed{Ref: ociRef, Cause: err}
	}
	tmpDir, err := os.MkdirTemp(filepath.Dir(destRoot), ".bundle-install-*")
	if err != nil {
		return nil, &coreerrors.BundleInstallFailed{Ref: ociRef, Cause: err}
	}
	defer os.RemoveAll(tmpDir)

	if err := extractImage(img, tmpDir); err != nil {
		return nil, &coreerrors.BundleInstallFailed{Ref: ociRef, Cause: err}
	}

	manifestPath := filepath.Join(tmpDir, ".ai", manifestFile)
	manifest, err := readManifest(manifestPath)
	if err != nil {
		return nil, &coreerrors.BundleInstallFailed{Ref: ociRef, Cause: err}
	}
	manifest.Source = &Source{OCIRef: ociRef, Digest: digest}
	if err := writeManifest(manifestPath, manifest); err != nil {
		return nil, &coreerrors.BundleInstallFailed{Ref: ociRef, Cause: err}
	}

	if err := os.RemoveAll(destRoot); err != nil {
		return nil, &coreerrors.BundleInstallFailed{Ref: ociRef, Cause: err}
	}
	if err := os.Rename(tmpDir, destRoot); err != nil {
		return nil, &coreerrors.BundleInstallFailed{Ref: ociRef, Cause: err}
	}

	return manifest, nil
}

// pinDigest rewrites ref to reference digest directly, never a floating
// tag, mirroring the teacher's buildPinnedImageRef.
func pinDigest(ref name.Reference, digest string) string {
	repo := ref.Context().String()
	return repo + "@" + digest
}

func extractImage(img v1.Image, destDir string) error {
	layers, err := img.Layers()
	if err != nil {
		return fmt.Errorf("read layers: %w", err)
	}

	for _, layer := range layers {
		rc, err := layer.Uncompressed()
		if err != nil {
			return fmt.Errorf("open layer: %w", err)
		}
		err = extractTar(rc, destDir)
		rc.Close()
		if err != nil {
			return fmt.Errorf("extract layer: %w", err)
		}
	}
	return nil
}

func extractTar(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, hdr.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != destDir {
			return fmt.Errorf("tar entry %q escapes extraction root", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			_, copyErr := io.Copy(f, tr)
			f.Close()
			if copyErr != nil {
				return copyErr
			}
		}
	}
}

// ReadManifest parses and validates a bundle manifest at path, exported so
// callers outside this package (the resolver's system-bundle configuration)
// can read a bundle's declared name/accepted-categories without installing it.
func ReadManifest(path string) (*Manifest, error) {
	return readManifest(path)
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", manifestFile, err)
	}

	var fields map[string]interface{}
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse %s: %w", manifestFile, err)
	}
	if err := extractor.Validate(fields, manifestSchema, extractor.ValidateOptions{Path: path}); err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", manifestFile, err)
	}
	return &m, nil
}

func writeManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
