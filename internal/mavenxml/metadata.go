// Package mavenxml models the subset of maven-metadata.xml glovebox reads,
// trimmed to the elements the resolver actually consumes: unknown
// elements are ignored by encoding/xml's default behavior, so this
// tolerates real-world maven-metadata.xml documents with plugin/SCM/etc.
// content glovebox never needs.
package mavenxml

import "encoding/xml"

// Metadata is the root element of a maven-metadata.xml document.
type Metadata struct {
	XMLName    xml.Name   `xml:"metadata"`
	Versioning Versioning `xml:"versioning"`
}

// Versioning holds the version listings a maven-metadata.xml document may
// carry. Both fields are optional: a root-level metadata.xml carries
// Versions, a version-scoped metadata.xml carries SnapshotVersions.
type Versioning struct {
	Versions         *Versions         `xml:"versions"`
	SnapshotVersions *SnapshotVersions `xml:"snapshotVersions"`
}

// Versions is the list of published literal versions for an artifact.
type Versions struct {
	Version []string `xml:"version"`
}

// SnapshotVersions is the list of classifier-specific timestamped
// filenames published for a single -SNAPSHOT version.
type SnapshotVersions struct {
	SnapshotVersion []SnapshotVersion `xml:"snapshotVersion"`
}

// SnapshotVersion is one classifier's published filename fragment within a
// snapshot's maven-metadata.xml.
type SnapshotVersion struct {
	Classifier string `xml:"classifier"`
	Value      string `xml:"value"`
}
