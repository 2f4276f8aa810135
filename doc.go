// Package odm maps Go structs to BSON documents and back.
//
// Fields take part in persistence when they carry an `odm` struct tag. The
// mapper walks them in declaration order, parents (untagged embedded structs)
// first, and produces a bson.D ready for the MongoDB driver. Reading goes the
// other way: the static field types guide decoding, and abstract types are
// resolved to a concrete type through a discriminator stored in the document.
//
// Features:
//
//   - **Declarative mapping**: `odm:"name,nullable,type=A|B"` on struct fields.
//   - **Inheritance**: embedded structs contribute their fields first.
//   - **Polymorphism**: interfaces resolve through registered discriminator maps.
//   - **Capabilities**: types can serialize themselves, or be backed-choice enums.
//   - **Typed Repositories**: `Repository[T]` over MongoDB or an in-memory collection.
//
// Usage:
//
//	type Person struct {
//		ID   primitive.ObjectID `odm:"_id"`
//		Name string             `odm:""`
//	}
//
//	doc, err := odm.ToDocument(Person{Name: "Ada"})
//	p, err := odm.FromDocument[Person](doc)
package odm
