package manifest

// Visitor receives the nodes of a manifest subtree, parents before children.
type Visitor interface {
	VisitApplicationVersion(av *ApplicationVersion)
	VisitExtension(av *ApplicationVersion, ext *Extension)
	VisitExtensionVersion(av *ApplicationVersion, ext *Extension, ev *ExtensionVersion)
}

// Walk visits every node of the manifest.
func (m *Manifest) Walk(v Visitor) {
	for _, av := range m.ApplicationVersions {
		av.Walk(v)
	}
}

// Walk visits av and everything below it.
func (av *ApplicationVersion) Walk(v Visitor) {
	v.VisitApplicationVersion(av)

	for _, ext := range av.Extensions {
		WalkExtension(av, ext, v)
	}
}

// WalkExtension visits ext and its versions.
func WalkExtension(av *ApplicationVersion, ext *Extension, v Visitor) {
	v.VisitExtension(av, ext)

	for _, ev := range ext.Versions {
		v.VisitExtensionVersion(av, ext, ev)
	}
}

// VersionFunc adapts a function to a Visitor that only cares about extension versions.
type VersionFunc func(av *ApplicationVersion, ext *Extension, ev *ExtensionVersion)

// VisitApplicationVersion implements Visitor.
func (VersionFunc) VisitApplicationVersion(*ApplicationVersion) {}

// VisitExtension implements Visitor.
func (VersionFunc) VisitExtension(*ApplicationVersion, *Extension) {}

// VisitExtensionVersion implements Visitor.
func (f VersionFunc) VisitExtensionVersion(av *ApplicationVersion, ext *Extension, ev *ExtensionVersion) {
	f(av, ext, ev)
}
