// Package meshcloud holds the shared data model for converting a
// semantically labeled scene mesh into a dense labeled point cloud.
//
// Responsibilities: mesh primitives (Vertex, Face), label types
// (ObjectID, SemanticID, Color), the fixed mesh-to-output coordinate
// re-orientation, and the error taxonomy shared by every stage.
//
// Stage packages live beneath this one: scene (object resolution),
// plymesh (mesh reading), labels (semantic assignment), densify
// (sampling), pointcloud (the output arrays), storage/sqlite (the
// persisted container) and pipeline (orchestration).
//
// Dependency rule: this package imports nothing from its children.
package meshcloud
