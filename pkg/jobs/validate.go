package jobs

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zoomauto/zoomauto/pkg/recurrence"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validate checks f before it is admitted. Once rules must not start before
// now unless checkRunAt is false (an unchanged rule being re-saved).
func validate(v *validator.Validate, f Fields, now time.Time, checkRunAt bool) error {
	inv := &InvalidJobError{}
	if err := v.Struct(f); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("%w: %v", ErrInvalidJob, err)
		}
		for _, fe := range verrs {
			inv.add(fe.Field(), fmt.Sprintf("failed %q (%v)", fe.Tag(), fe.Value()))
		}
	}
	if f.target().IsEmpty() {
		inv.add("target", "a link or a meeting id is required")
	}
	if err := recurrence.Validate(f.Recurrence); err != nil {
		inv.add("recurrence", err.Error())
	} else if once, ok := f.Recurrence.(recurrence.Once); ok && checkRunAt && once.RunAt.Before(now) {
		inv.add("recurrence", "run time "+once.RunAt.Format("2006-01-02 15:04")+" is in the past")
	}
	if len(inv.Fields) > 0 {
		return inv
	}
	return nil
}
