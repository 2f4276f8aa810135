package odm_test

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/aretw0/odm"
	"github.com/aretw0/odm/pkg/adapters/memory"
)

type Pet interface {
	Sound() string
}

type Dog struct {
	Kind string `odm:""`
	Name string `odm:""`
}

func (d Dog) Sound() string { return d.Name + " says woof" }

type Cat struct {
	Kind  string `odm:""`
	Lives int    `odm:""`
}

func (Cat) Sound() string { return "meow" }

type Owner struct {
	ID   string `odm:"_id"`
	Name string `odm:""`
	Pets []Pet  `odm:""`
}

// Example_basic converts a struct to a document and back.
func Example_basic() {
	doc, err := odm.ToDocument(Owner{ID: "o1", Name: "Ada"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(doc)

	owner, err := odm.FromDocument[Owner](bson.D{{Key: "_id", Value: "o2"}, {Key: "name", Value: "Grace"}})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(owner.ID, owner.Name)
	// Output:
	// [{_id o1} {name Ada} {pets <nil>}]
	// o2 Grace
}

// Example_polymorphism stores interface values and reads them back through a
// discriminator map.
func Example_polymorphism() {
	m := odm.New()
	odm.SetDefault(m)

	if err := odm.Register[Dog]("dog"); err != nil {
		log.Fatal(err)
	}
	if err := odm.Register[Cat]("cat"); err != nil {
		log.Fatal(err)
	}
	if err := odm.Abstract[Pet]("kind", map[string]string{"d": "dog", "c": "cat"}); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	owners := odm.NewRepository[Owner](memory.NewCollection("owners"))

	_, err := owners.Save(ctx, Owner{
		ID:   "o1",
		Name: "Ada",
		Pets: []Pet{Dog{Kind: "d", Name: "Rex"}, Cat{Kind: "c", Lives: 9}},
	})
	if err != nil {
		log.Fatal(err)
	}

	owner, err := owners.Get(ctx, "o1")
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range owner.Pets {
		fmt.Println(p.Sound())
	}
	// Output:
	// Rex says woof
	// meow
}
