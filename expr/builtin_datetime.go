package expr

import (
	stdtime "time"

	"graphdb.evalgo.org/value"
)

func registerDateTimeFunctions(r *Registry) {
	r.Register(sig("now", nil, TypeDateTime, false, "current date and time"), func(_ []value.Value) (value.Value, error) {
		return value.NewDateTime(value.DateTimeOf(stdtime.Now())), nil
	})

	r.Register(sig("date", nil, TypeDate, false, "current date"), func(_ []value.Value) (value.Value, error) {
		return value.NewDate(value.DateOf(stdtime.Now())), nil
	})
	r.Register(sig("date", []ValueType{TypeString}, TypeDate, true, "parse a yyyy-mm-dd date"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		s, err := stringArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		t, err := stdtime.Parse("2006-01-02", s)
		if err != nil {
			return value.NewNull(value.NullBadData), nil
		}
		return value.NewDate(value.DateOf(t)), nil
	})

	r.Register(sig("time", nil, TypeTime, false, "current time of day"), func(_ []value.Value) (value.Value, error) {
		return value.NewTime(value.TimeOf(stdtime.Now())), nil
	})
	r.Register(sig("time", []ValueType{TypeString}, TypeTime, true, "parse an hh:mm:ss time"), func(args []value.Value) (value.Value, error) {
		if n, isNull := argNull(args); isNull {
			return n, nil
		}
		s, err := stringArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		t, err := stdtime.Parse("15:04:05", s)
		if err != nil {
			return value.NewNull(value.NullBadData), nil
		}
		return value.NewTime(value.TimeOf(t)), nil
	})

	dateField := func(name, desc string, fn func(value.Date) int64) {
		body := func(args []value.Value) (value.Value, error) {
			if n, isNull := argNull(args); isNull {
				return n, nil
			}
			if d, ok := args[0].Date(); ok {
				return value.NewInt(fn(d)), nil
			}
			if dt, ok := args[0].DateTime(); ok {
				return value.NewInt(fn(dt.Date)), nil
			}
			return value.Value{}, Errorf(TypeMismatch, "%s requires a date or datetime, got %s", name, args[0].Kind())
		}
		r.Register(sig(name, []ValueType{TypeDate}, TypeInt, true, desc), body)
		r.Register(sig(name, []ValueType{TypeDateTime}, TypeInt, true, desc), body)
	}
	dateField("year", "calendar year", func(d value.Date) int64 { return int64(d.Year) })
	dateField("month", "calendar month", func(d value.Date) int64 { return int64(d.Month) })
	dateField("day", "day of month", func(d value.Date) int64 { return int64(d.Day) })

	timeField := func(name, desc string, fn func(value.Time) int64) {
		body := func(args []value.Value) (value.Value, error) {
			if n, isNull := argNull(args); isNull {
				return n, nil
			}
			if t, ok := args[0].Time(); ok {
				return value.NewInt(fn(t)), nil
			}
			if dt, ok := args[0].DateTime(); ok {
				return value.NewInt(fn(dt.Time)), nil
			}
			return value.Value{}, Errorf(TypeMismatch, "%s requires a time or datetime, got %s", name, args[0].Kind())
		}
		r.Register(sig(name, []ValueType{TypeTime}, TypeInt, true, desc), body)
		r.Register(sig(name, []ValueType{TypeDateTime}, TypeInt, true, desc), body)
	}
	timeField("hour", "hour of day", func(t value.Time) int64 { return int64(t.Hour) })
	timeField("minute", "minute of hour", func(t value.Time) int64 { return int64(t.Minute) })
	timeField("second", "second of minute", func(t value.Time) int64 { return int64(t.Second) })
}
