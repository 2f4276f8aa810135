// Package aggregation builds MongoDB aggregation expressions.
//
// Date operators carry a timezone; a Builder supplies DefaultTimezone unless
// it was created with another one.
package aggregation

import (
	"go.mongodb.org/mongo-driver/bson"
)

// DefaultTimezone is used by date operators when the builder has none.
const DefaultTimezone = "Europe/Madrid"

// Aggregation is implemented by types that produce a pipeline.
type Aggregation interface {
	Pipeline() bson.A
}

// Builder creates expression documents.
type Builder struct {
	TZ string
}

// New returns a builder for tz. An empty tz selects DefaultTimezone.
func New(tz string) Builder {
	return Builder{TZ: tz}
}

func (b Builder) tz() string {
	if b.TZ == "" {
		return DefaultTimezone
	}
	return b.TZ
}

// Not negates e.
func (b Builder) Not(e any) bson.D {
	return bson.D{{Key: "$not", Value: e}}
}

// And is true when every argument is.
func (b Builder) And(args ...any) bson.D {
	return bson.D{{Key: "$and", Value: bson.A(args)}}
}

// GetField reads field from input, for names with dots or dollars.
func (b Builder) GetField(field string, input any) bson.D {
	return bson.D{{Key: "$getField", Value: bson.D{{Key: "field", Value: field}, {Key: "input", Value: input}}}}
}

// ArrayElemAt returns the element at index; negative indexes count from the end.
func (b Builder) ArrayElemAt(array any, index any) bson.D {
	return bson.D{{Key: "$arrayElemAt", Value: bson.A{array, index}}}
}

// Mod is the remainder of x divided by y.
func (b Builder) Mod(x, y any) bson.D {
	return bson.D{{Key: "$mod", Value: bson.A{x, y}}}
}

// Subtract returns x - y. With dates the result is in milliseconds.
func (b Builder) Subtract(x, y any) bson.D {
	return bson.D{{Key: "$subtract", Value: bson.A{x, y}}}
}

// Add returns x + y.
func (b Builder) Add(x, y any) bson.D {
	return bson.D{{Key: "$add", Value: bson.A{x, y}}}
}

// Eq compares x and y for equality.
func (b Builder) Eq(x, y any) bson.D {
	return bson.D{{Key: "$eq", Value: bson.A{x, y}}}
}

// Cond evaluates to then when cond holds, otherwise to otherwise.
func (b Builder) Cond(cond, then, otherwise any) bson.D {
	return bson.D{{Key: "$cond", Value: bson.D{{Key: "if", Value: cond}, {Key: "then", Value: then}, {Key: "else", Value: otherwise}}}}
}

// DateAdd adds amount units to date.
func (b Builder) DateAdd(date any, amount any, unit string) bson.D {
	return bson.D{{Key: "$dateAdd", Value: bson.D{
		{Key: "startDate", Value: date},
		{Key: "unit", Value: unit},
		{Key: "amount", Value: amount},
		{Key: "timezone", Value: b.tz()},
	}}}
}

// DateDiff counts unit boundaries between two dates. startOfWeek is only
// emitted when not empty.
func (b Builder) DateDiff(start, end any, unit, startOfWeek string) bson.D {
	args := bson.D{
		{Key: "startDate", Value: start},
		{Key: "endDate", Value: end},
		{Key: "unit", Value: unit},
		{Key: "timezone", Value: b.tz()},
	}
	if startOfWeek != "" {
		args = append(args, bson.E{Key: "startOfWeek", Value: startOfWeek})
	}
	return bson.D{{Key: "$dateDiff", Value: args}}
}

// DateTrunc truncates date to unit. startOfWeek is only emitted when not empty.
func (b Builder) DateTrunc(date any, unit, startOfWeek string) bson.D {
	args := bson.D{
		{Key: "date", Value: date},
		{Key: "unit", Value: unit},
		{Key: "timezone", Value: b.tz()},
	}
	if startOfWeek != "" {
		args = append(args, bson.E{Key: "startOfWeek", Value: startOfWeek})
	}
	return bson.D{{Key: "$dateTrunc", Value: args}}
}

// FirstDayOfMonth truncates date to the start of its month.
func (b Builder) FirstDayOfMonth(date any) bson.D {
	return b.DateTrunc(date, "month", "")
}

// LastDayOfMonth is the first day of the next month minus one day.
func (b Builder) LastDayOfMonth(date any) bson.D {
	next := b.DateAdd(b.FirstDayOfMonth(date), 1, "month")
	return b.DateAdd(next, -1, "day")
}

// RemoveTime truncates date to midnight.
func (b Builder) RemoveTime(date any) bson.D {
	return b.DateTrunc(date, "day", "")
}

// DayOfMonth returns the day of the month, 1 to 31.
func (b Builder) DayOfMonth(date any) bson.D {
	return b.datePart("$dayOfMonth", date)
}

// Month returns the month, 1 to 12.
func (b Builder) Month(date any) bson.D {
	return b.datePart("$month", date)
}

// DayOfWeek is the ISO day of week (Monday is 1).
func (b Builder) DayOfWeek(date any) bson.D {
	return b.datePart("$isoDayOfWeek", date)
}

// Week is the ISO week number.
func (b Builder) Week(date any) bson.D {
	return b.datePart("$isoWeek", date)
}

func (b Builder) datePart(op string, date any) bson.D {
	return bson.D{{Key: op, Value: bson.D{{Key: "date", Value: date}, {Key: "timezone", Value: b.tz()}}}}
}

// Stages is a fixed pipeline.
type Stages bson.A

// Pipeline implements Aggregation.
func (s Stages) Pipeline() bson.A {
	return bson.A(s)
}
