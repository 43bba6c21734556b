// Package scene resolves the labeled objects of one level of a
// Matterport3D house.
//
// Responsibilities: scene identifier parsing, .house file parsing,
// level selection and whitelist filtering.
// Key types: ID, House, Category.
//
// Object ids produced here are the .house object indices, which are the
// object_id values carried by faces of the matching semantic mesh.
package scene
