package mapper_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aretw0/odm/pkg/core"
	"github.com/aretw0/odm/pkg/discriminator"
	"github.com/aretw0/odm/pkg/enum"
	"github.com/aretw0/odm/pkg/mapper"
	"github.com/aretw0/odm/pkg/schema"
)

type Status string

const (
	Active Status = "active"
	Banned Status = "banned"
)

func (s Status) EnumValue() any { return string(s) }

type Audit struct {
	CreatedAt time.Time `odm:""`
}

type Address struct {
	Street string `odm:""`
	City   string `odm:""`
}

type Blob []byte

type Person struct {
	Audit
	ID     primitive.ObjectID `odm:"_id"`
	Name   string             `odm:""`
	Age    int                `odm:""`
	Nick   *string            `odm:""`
	Home   Address            `odm:""`
	Past   []Address          `odm:""`
	Tags   []string           `odm:""`
	Status Status             `odm:""`
	Scores map[string]int     `odm:""`
	Extra  any                `odm:""`
	Avatar Blob               `odm:""`

	Ignored string
}

func newMapper(t *testing.T) *mapper.Mapper {
	t.Helper()
	m := mapper.New(mapper.Config{})
	enum.Register(m.Enums(), Active, Banned)
	return m
}

func samplePerson() Person {
	nick := "ada"
	return Person{
		Audit:  Audit{CreatedAt: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)},
		ID:     primitive.NewObjectID(),
		Name:   "Ada Lovelace",
		Age:    36,
		Nick:   &nick,
		Home:   Address{Street: "St James's Square", City: "London"},
		Past:   []Address{{Street: "Ockham Park", City: "Surrey"}},
		Tags:   []string{"math", "poetry"},
		Status: Active,
		Scores: map[string]int{"analysis": 10},
		Avatar: Blob("\x89PNG"),
	}
}

func TestToDocument_Shape(t *testing.T) {
	m := newMapper(t)
	p := samplePerson()
	p.Ignored = "not persisted"

	doc, err := m.ToDocument(&p)
	require.NoError(t, err)

	keys := make([]string, 0, len(doc))
	for _, e := range doc {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"created_at", "_id", "name", "age", "nick", "home", "past", "tags", "status", "scores", "extra", "avatar"}, keys,
		"parent fields come first, untagged fields are skipped")

	created, _ := core.Lookup(doc, "created_at")
	assert.Equal(t, primitive.NewDateTimeFromTime(p.CreatedAt), created)

	home, _ := core.Lookup(doc, "home")
	assert.Equal(t, bson.D{{Key: "street", Value: "St James's Square"}, {Key: "city", Value: "London"}}, home)

	tags, _ := core.Lookup(doc, "tags")
	assert.Equal(t, bson.A{"math", "poetry"}, tags)

	status, _ := core.Lookup(doc, "status")
	assert.Equal(t, "active", status)

	scores, _ := core.Lookup(doc, "scores")
	assert.Equal(t, bson.M{"analysis": 10}, scores)

	extra, ok := core.Lookup(doc, "extra")
	assert.True(t, ok)
	assert.Nil(t, extra)

	avatar, _ := core.Lookup(doc, "avatar")
	assert.Equal(t, []byte("\x89PNG"), avatar)
}

func TestRoundTrip(t *testing.T) {
	m := newMapper(t)
	p := samplePerson()

	doc, err := m.ToDocument(p)
	require.NoError(t, err)

	got, err := mapper.FromDocument[Person](m, doc)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	t.Run("through raw bson", func(t *testing.T) {
		raw, err := bson.Marshal(doc)
		require.NoError(t, err)

		got, err := mapper.FromDocument[*Person](m, bson.Raw(raw))
		require.NoError(t, err)
		assert.Equal(t, p, *got)
	})
}

func TestDates_TruncatedToSeconds(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 450_000_000, time.UTC)

	m := newMapper(t)
	doc, err := m.ToDocument(Audit{CreatedAt: ts})
	require.NoError(t, err)
	assert.Equal(t, primitive.DateTime(ts.Unix()*1000), doc[0].Value)

	precise := mapper.New(mapper.Config{MillisecondPrecision: true})
	doc, err = precise.ToDocument(Audit{CreatedAt: ts})
	require.NoError(t, err)
	assert.Equal(t, primitive.NewDateTimeFromTime(ts), doc[0].Value)
}

func TestPassthrough(t *testing.T) {
	m := newMapper(t)
	id := primitive.NewObjectID()
	dec := primitive.NewDecimal128(1, 2)

	for _, v := range []any{id, dec, primitive.Regex{Pattern: "^a"}, []byte("bin"), "plain", int32(7)} {
		enc, err := m.SerializeValue(v)
		require.NoError(t, err)
		assert.Equal(t, v, enc)

		back, err := m.DeserializeValue(enc, nil)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}
}

func TestDeserializeValue(t *testing.T) {
	m := newMapper(t)

	t.Run("date becomes time", func(t *testing.T) {
		ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		got, err := m.DeserializeValue(primitive.NewDateTimeFromTime(ts), nil)
		require.NoError(t, err)
		assert.Equal(t, ts, got)
	})

	t.Run("generic record keeps its shape", func(t *testing.T) {
		got, err := m.DeserializeValue(bson.D{{Key: "a", Value: bson.A{int32(1)}}}, nil)
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "a", Value: bson.A{int32(1)}}}, got)
	})

	t.Run("mapped instance is rebuilt", func(t *testing.T) {
		src := &Address{Street: "x", City: "y"}
		got, err := m.DeserializeValue(src, nil)
		require.NoError(t, err)

		rebuilt, ok := got.(*Address)
		require.True(t, ok)
		assert.Equal(t, *src, *rebuilt)
		assert.NotSame(t, src, rebuilt)
	})
}

type Base struct {
	ID string `odm:"_id"`
}

type Override struct {
	Base
	Code string `odm:"_id"`
	Name string `odm:""`
}

func TestToDocument_OverrideSharesKey(t *testing.T) {
	m := newMapper(t)

	doc, err := m.ToDocument(Override{Base: Base{ID: "parent"}, Code: "child", Name: "n"})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "_id", Value: "child"}, {Key: "name", Value: "n"}}, doc)

	strict := mapper.New(mapper.Config{Fields: schema.New(nil, true)})
	_, err = strict.ToDocument(Override{})
	assert.True(t, errors.Is(err, core.ErrNameCollision))
}

type Profile struct {
	Bio   *string `odm:""`
	Email string  `odm:",nullable"`
	Name  string  `odm:""`
	Age   int     `odm:""`
}

func TestDecode_NullWriteBack(t *testing.T) {
	m := newMapper(t)
	bio := "about"
	p := Profile{Bio: &bio, Email: "a@b.c", Name: "kept", Age: 9}

	err := m.Decode(bson.D{
		{Key: "bio", Value: nil},
		{Key: "email", Value: nil},
		{Key: "name", Value: nil},
	}, &p)
	require.NoError(t, err)

	assert.Nil(t, p.Bio, "pointer fields are nullable")
	assert.Empty(t, p.Email, "tagged nullable fields take the null")
	assert.Equal(t, "kept", p.Name, "non-nullable fields ignore nulls")
	assert.Equal(t, 9, p.Age, "missing keys are never written")
}

func TestDecode_Targets(t *testing.T) {
	m := newMapper(t)

	var p Profile
	err := m.Decode(bson.D{}, p)
	assert.True(t, errors.Is(err, core.ErrInvalidTarget))

	var n int
	err = m.Decode(bson.D{}, &n)
	assert.True(t, errors.Is(err, core.ErrInvalidTarget))

	err = m.Decode("nope", &p)
	assert.True(t, errors.Is(err, core.ErrTypeMismatch))

	err = m.Decode(bson.M{"name": "m", "age": int64(4)}, &p)
	require.NoError(t, err)
	assert.Equal(t, Profile{Name: "m", Age: 4}, p)

	err = m.Decode(bson.M{"age": "four"}, &p)
	assert.True(t, errors.Is(err, core.ErrTypeMismatch))

	err = m.Decode(bson.M{"age": 1.5}, &p)
	assert.True(t, errors.Is(err, core.ErrTypeMismatch))
}

type Shape interface {
	Area() float64
}

type Circle struct {
	Kind string  `odm:""`
	R    float64 `odm:""`
}

func (c Circle) Area() float64 { return 3 * c.R * c.R }

type Square struct {
	Kind string  `odm:""`
	Side float64 `odm:""`
}

func (s Square) Area() float64 { return s.Side * s.Side }

type Drawing struct {
	Title  string  `odm:""`
	Main   Shape   `odm:""`
	Shapes []Shape `odm:""`
	Any    any     `odm:"any,type=square"`
}

func shapeMapper(t *testing.T) *mapper.Mapper {
	t.Helper()
	m := newMapper(t)
	require.NoError(t, discriminator.Register[Circle](m.Types(), "circle"))
	require.NoError(t, discriminator.Register[Square](m.Types(), "square"))
	require.NoError(t, discriminator.Abstract[Shape](m.Types(), "kind", map[string]string{"c": "circle", "s": "square"}))
	return m
}

func TestDiscriminator(t *testing.T) {
	m := shapeMapper(t)

	d := Drawing{
		Title:  "mixed",
		Main:   Circle{Kind: "c", R: 1},
		Shapes: []Shape{Square{Kind: "s", Side: 2}, Circle{Kind: "c", R: 3}},
	}
	doc, err := m.ToDocument(d)
	require.NoError(t, err)

	got, err := mapper.FromDocument[Drawing](m, doc)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	t.Run("abstract target", func(t *testing.T) {
		s, err := mapper.FromDocument[Shape](m, bson.D{{Key: "kind", Value: "s"}, {Key: "side", Value: 4.0}})
		require.NoError(t, err)
		assert.Equal(t, Square{Kind: "s", Side: 4}, s)
	})

	t.Run("unknown discriminator", func(t *testing.T) {
		_, err := mapper.FromDocument[Shape](m, bson.D{{Key: "kind", Value: "zz"}})
		assert.True(t, errors.Is(err, core.ErrUnresolvableDiscriminator))
	})

	t.Run("declared type name", func(t *testing.T) {
		got, err := mapper.FromDocument[Drawing](m, bson.D{{Key: "any", Value: bson.D{{Key: "side", Value: 5.0}}}})
		require.NoError(t, err)
		assert.Equal(t, Square{Side: 5}, got.Any)
	})
}

type Coord struct {
	X int `odm:"0"`
	Y int `odm:"1"`
}

type Route struct {
	From  Coord              `odm:""`
	Stops map[string]Address `odm:""`
	Codes map[int]string     `odm:""`
	Grid  [2]Coord           `odm:""`
	Raw   bson.Raw           `odm:""`
	When  primitive.DateTime `odm:""`
}

func TestDecode_Collections(t *testing.T) {
	m := newMapper(t)
	raw, err := bson.Marshal(bson.D{{Key: "k", Value: "v"}})
	require.NoError(t, err)

	var r Route
	err = m.Decode(bson.D{
		{Key: "from", Value: bson.A{int32(1), int32(2)}},
		{Key: "stops", Value: bson.D{{Key: "home", Value: bson.D{{Key: "city", Value: "Porto"}}}}},
		{Key: "codes", Value: bson.M{"7": "seven"}},
		{Key: "grid", Value: bson.A{bson.A{1, 2}, bson.A{3, 4}}},
		{Key: "raw", Value: bson.Raw(raw)},
		{Key: "when", Value: primitive.DateTime(1000)},
	}, &r)
	require.NoError(t, err)

	assert.Equal(t, Coord{X: 1, Y: 2}, r.From, "a list fills a mapped type by position")
	assert.Equal(t, map[string]Address{"home": {City: "Porto"}}, r.Stops)
	assert.Equal(t, map[int]string{7: "seven"}, r.Codes)
	assert.Equal(t, [2]Coord{{1, 2}, {3, 4}}, r.Grid)
	assert.Equal(t, bson.Raw(raw), r.Raw)
	assert.Equal(t, primitive.DateTime(1000), r.When)
}

func TestToDocument_Unsupported(t *testing.T) {
	m := newMapper(t)

	_, err := m.ToDocument(struct {
		Ch chan int `odm:""`
	}{Ch: make(chan int)})
	assert.True(t, errors.Is(err, core.ErrUnsupportedValue))

	_, err = m.ToDocument(42)
	assert.True(t, errors.Is(err, core.ErrUnsupportedValue))

	_, err = m.ToDocument((*Person)(nil))
	assert.True(t, errors.Is(err, core.ErrUnsupportedValue))
}

func TestDecode_UnmatchedEnum(t *testing.T) {
	m := newMapper(t)

	var p Person
	err := m.Decode(bson.D{{Key: "status", Value: "ghost"}}, &p)
	assert.True(t, errors.Is(err, core.ErrUnmatchedEnum))

	err = m.Decode(bson.D{{Key: "status", Value: "banned"}}, &p)
	require.NoError(t, err)
	assert.Equal(t, Banned, p.Status)
}

type Node struct {
	Name  string `odm:""`
	Next  *Node  `odm:""`
	Other *Node  `odm:""`
}

func TestToDocument_Cycles(t *testing.T) {
	m := newMapper(t)

	loop := &Node{Name: "a"}
	loop.Next = loop
	_, err := m.ToDocument(loop)
	assert.True(t, errors.Is(err, core.ErrCyclicStructure))

	shared := &Node{Name: "leaf"}
	doc, err := m.ToDocument(&Node{Name: "root", Next: shared, Other: shared})
	require.NoError(t, err, "a value reached twice is not a cycle")
	next, _ := core.Lookup(doc, "next")
	other, _ := core.Lookup(doc, "other")
	assert.Equal(t, next, other)
}

type Account struct {
	Login  string `odm:""`
	secret string `odm:""`
	token  string `odm:""`
	pin    string `odm:""`
}

func (a *Account) Secret() string     { return a.secret }
func (a *Account) SetSecret(s string) { a.secret = s }
func (a *Account) GetToken() string   { return a.token }
func (a *Account) SetPin(p string)    { a.pin = p }

func TestAccessorFields(t *testing.T) {
	m := newMapper(t)

	doc, err := m.ToDocument(&Account{Login: "l", secret: "s", token: "t", pin: "p"})
	require.NoError(t, err)
	assert.Equal(t, bson.D{
		{Key: "login", Value: "l"},
		{Key: "secret", Value: "s"},
		{Key: "token", Value: "t"},
	}, doc, "setter-only fields are not serialized")

	var a Account
	err = m.Decode(bson.D{
		{Key: "login", Value: "l"},
		{Key: "secret", Value: "s"},
		{Key: "token", Value: "t"},
		{Key: "pin", Value: "p"},
	}, &a)
	require.NoError(t, err)
	assert.Equal(t, Account{Login: "l", secret: "s", pin: "p"}, a, "getter-only fields are not deserialized")
}

type Money struct {
	Cents    int64
	Currency string
}

func (m Money) BSONSerialize() (any, error) {
	return bson.D{{Key: "amount", Value: fmt.Sprintf("%d.%02d", m.Cents/100, m.Cents%100)}, {Key: "cur", Value: m.Currency}}, nil
}

func (m *Money) BSONUnserialize(d bson.D) error {
	var units, cents int64
	amount, _ := core.Lookup(d, "amount")
	if _, err := fmt.Sscanf(fmt.Sprint(amount), "%d.%d", &units, &cents); err != nil {
		return err
	}
	m.Cents = units*100 + cents
	cur, _ := core.Lookup(d, "cur")
	m.Currency, _ = cur.(string)
	return nil
}

type Invoice struct {
	Number int     `odm:""`
	Total  Money   `odm:""`
	Lines  []Money `odm:""`
}

func TestCustomSerialization(t *testing.T) {
	m := newMapper(t)
	inv := Invoice{Number: 1, Total: Money{Cents: 1250, Currency: "EUR"}, Lines: []Money{{Cents: 5, Currency: "EUR"}}}

	doc, err := m.ToDocument(inv)
	require.NoError(t, err)

	total, _ := core.Lookup(doc, "total")
	assert.Equal(t, bson.D{{Key: "amount", Value: "12.50"}, {Key: "cur", Value: "EUR"}}, total)

	got, err := mapper.FromDocument[Invoice](m, doc)
	require.NoError(t, err)
	assert.Equal(t, inv, got)

	var money Money
	require.NoError(t, m.Decode(total, &money))
	assert.Equal(t, inv.Total, money)

	own, err := m.ToDocument(inv.Total)
	require.NoError(t, err)
	assert.Equal(t, total, own)
}

func TestFromDocument_NotMapped(t *testing.T) {
	m := newMapper(t)
	_, err := mapper.FromDocument[int](m, bson.D{})
	assert.True(t, errors.Is(err, core.ErrInvalidTarget))
}

func TestState(t *testing.T) {
	m := shapeMapper(t)
	_, err := m.ToDocument(Circle{})
	require.NoError(t, err)

	state, ok := m.State().(mapper.MapperState)
	require.True(t, ok)
	assert.Equal(t, "mapper", m.ComponentType())
	assert.Equal(t, []string{"circle", "square"}, state.TypeNames)
	assert.Contains(t, state.MappedTypes, reflect.TypeOf(Circle{}).String())
	assert.Contains(t, state.Enums, reflect.TypeOf(Active).String())
	assert.False(t, state.StrictNames)
}
