package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/ext-packager/internal/config"
	"github.com/oshokin/ext-packager/internal/domain/manifest"
	"github.com/oshokin/ext-packager/internal/logger"
	manifestrepo "github.com/oshokin/ext-packager/internal/repository/manifest"
	"github.com/oshokin/ext-packager/internal/repository/target"
	"github.com/oshokin/ext-packager/internal/signature"
	"github.com/oshokin/ext-packager/internal/version"
)

const (
	// FileExtension is the extension of project documents.
	FileExtension = ".extpkg"
	// PrivateKeyFilename is stored in the project directory and never published.
	PrivateKeyFilename = "private.key"
	// PublicKeyFilename is stored in the distribution root.
	PublicKeyFilename = target.DefaultPublicKeyPath
	// DistDirName is the distribution root inside the project directory.
	DistDirName = "dist"
)

var (
	// ErrConfirmationRequired is returned when replacing an existing key pair without confirmation.
	ErrConfirmationRequired = errors.New("replacing the key pair invalidates every signature, confirmation required")
	// ErrProjectExists is returned when creating a project in a directory that already holds one.
	ErrProjectExists = errors.New("project already exists")
	// errBlankName is returned for blank project or application names.
	errBlankName = errors.New("name must not be blank")
)

// document is the YAML project file.
type document struct {
	ProjectName     string `yaml:"project_name"`
	ApplicationName string `yaml:"application_name"`
	Generator       string `yaml:"generator,omitempty"`
}

// Project is a packaging project rooted in one directory.
type Project struct {
	name    string
	appName string
	dir     string

	manifest *manifest.Manifest
	keys     *signature.KeyPair
	sources  *target.Sources

	manifestRepo *manifestrepo.FileRepository
	targetRepo   *target.FileRepository
}

// Create initializes a new project named name in dir for the given host application.
func Create(ctx context.Context, dir, name, applicationName string) (*Project, error) {
	name, applicationName = strings.TrimSpace(name), strings.TrimSpace(applicationName)
	if name == "" || applicationName == "" {
		return nil, errBlankName
	}

	dir = filepath.Clean(dir)

	p := newProject(dir, name, applicationName)
	if _, err := os.Stat(p.File()); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectExists, p.File())
	}

	if err := os.MkdirAll(filepath.Join(p.DistDir(), manifest.ExtensionsDir), config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create project directories: %w", err)
	}

	p.manifest = manifest.New(applicationName)
	p.sources = target.NewSources(applicationName)

	if err := p.Save(ctx); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Project created", "project", name, "dir", dir)

	return p, nil
}

// Open loads the project stored in the given project file. A corrupt manifest, key pair or
// target list is replaced by an empty default and logged; it never prevents opening.
func Open(ctx context.Context, file string) (*Project, error) {
	file = filepath.Clean(file)

	contents, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}

	var doc document
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode project file: %w", err)
	}

	if strings.TrimSpace(doc.ProjectName) == "" {
		doc.ProjectName = strings.TrimSuffix(filepath.Base(file), FileExtension)
	}

	p := newProject(filepath.Dir(file), doc.ProjectName, doc.ApplicationName)
	ctx = logger.WithKV(ctx, "project", p.name)

	p.loadManifest(ctx)
	p.loadKeys(ctx)
	p.loadTargets(ctx)

	if p.appName == "" {
		p.appName = p.manifest.ApplicationName
	}

	return p, nil
}

func newProject(dir, name, applicationName string) *Project {
	p := &Project{
		name:    name,
		appName: applicationName,
		dir:     dir,
	}
	p.manifestRepo = manifestrepo.NewFileRepository(p.ManifestPath())
	p.targetRepo = target.NewFileRepository(filepath.Join(dir, target.Filename))

	return p
}

func (p *Project) loadManifest(ctx context.Context) {
	m, err := p.manifestRepo.Load(ctx)

	switch {
	case err == nil:
		p.manifest = m
	case errors.Is(err, manifestrepo.ErrNotFound):
		p.manifest = manifest.New(p.appName)
	default:
		logger.ErrorKV(ctx, "Unable to load manifest, starting with an empty one", "path", p.ManifestPath(), "error", err)
		p.manifest = manifest.New(p.appName)
	}
}

func (p *Project) loadKeys(ctx context.Context) {
	_, privErr := os.Stat(p.PrivateKeyPath())
	_, pubErr := os.Stat(p.PublicKeyPath())

	if errors.Is(privErr, os.ErrNotExist) && errors.Is(pubErr, os.ErrNotExist) {
		return
	}

	kp, err := signature.LoadKeyPair(p.PrivateKeyPath(), p.PublicKeyPath())
	if err != nil {
		logger.ErrorKV(ctx, "Unable to load key pair, signing is unavailable", "error", err)
		return
	}

	p.keys = kp
}

func (p *Project) loadTargets(ctx context.Context) {
	s, err := p.targetRepo.Load(ctx)

	switch {
	case err == nil:
		p.sources = s
	case errors.Is(err, target.ErrNotFound):
		p.sources = target.NewSources(p.appName)
	default:
		logger.ErrorKV(ctx, "Unable to load targets, starting with none", "error", err)
		p.sources = target.NewSources(p.appName)
	}
}

// Save writes the project file, the manifest and the target list.
func (p *Project) Save(ctx context.Context) error {
	data, err := yaml.Marshal(&document{
		ProjectName:     p.name,
		ApplicationName: p.appName,
		Generator:       version.Generator(),
	})
	if err != nil {
		return fmt.Errorf("encode project file: %w", err)
	}

	if err = os.WriteFile(p.File(), data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write project file: %w", err)
	}

	if err = p.manifestRepo.Save(ctx, p.manifest); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	if err = p.targetRepo.Save(ctx, p.sources); err != nil {
		return fmt.Errorf("save targets: %w", err)
	}

	logger.DebugKV(ctx, "Project saved", "project", p.name)

	return nil
}

// Stamp records the manifest generation time and writes the manifest.
func (p *Project) Stamp(ctx context.Context, at time.Time) error {
	at = at.UTC()
	p.manifest.ManifestGenerated = &at
	p.manifest.Generator = version.Generator()

	return p.manifestRepo.Save(ctx, p.manifest)
}

// RegenerateKeyPair creates and stores a new key pair. Replacing an existing pair requires
// confirm, because every existing signature stops verifying.
func (p *Project) RegenerateKeyPair(ctx context.Context, confirm bool) (*signature.KeyPair, error) {
	if p.keys != nil && !confirm {
		return nil, ErrConfirmationRequired
	}

	kp, err := signature.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	if err = signature.SaveKeyPair(kp, p.PrivateKeyPath(), p.PublicKeyPath()); err != nil {
		return nil, err
	}

	p.keys = kp
	logger.InfoKV(ctx, "Key pair generated", "project", p.name, "public_key", p.PublicKeyPath())

	return kp, nil
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// ApplicationName returns the host application the project packages extensions for.
func (p *Project) ApplicationName() string { return p.appName }

// Dir returns the project directory.
func (p *Project) Dir() string { return p.dir }

// File returns the project document path.
func (p *Project) File() string { return filepath.Join(p.dir, p.name+FileExtension) }

// DistDir returns the distribution root.
func (p *Project) DistDir() string { return filepath.Join(p.dir, DistDirName) }

// ManifestPath returns the manifest document path.
func (p *Project) ManifestPath() string { return filepath.Join(p.DistDir(), manifestrepo.Filename) }

// PrivateKeyPath returns the private key path.
func (p *Project) PrivateKeyPath() string { return filepath.Join(p.dir, PrivateKeyFilename) }

// PublicKeyPath returns the public key path.
func (p *Project) PublicKeyPath() string { return filepath.Join(p.DistDir(), PublicKeyFilename) }

// Manifest returns the in-memory manifest.
func (p *Project) Manifest() *manifest.Manifest { return p.manifest }

// KeyPair returns the signing keys, or nil when the project has none.
func (p *Project) KeyPair() *signature.KeyPair { return p.keys }

// Targets returns the distribution targets.
func (p *Project) Targets() *target.Sources { return p.sources }
