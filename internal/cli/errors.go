package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/idiomatic/internal/schema"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg   string
	cause error
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func wrapUsageError(cause error, msg string) error {
	return usageError{msg: msg, cause: cause}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

func (e usageError) Unwrap() error { return e.cause }

// schemaUsageError renders every schema violation in err as one friendly
// message. The structured errors stay reachable through errors.As.
func schemaUsageError(err error) error {
	var all []*schema.SchemaError
	collectSchemaErrors(err, &all)
	if len(all) == 0 {
		return err
	}
	var b strings.Builder
	for i, se := range all {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "schema: %s", se.Message)
		if se.Location != "" {
			fmt.Fprintf(&b, "\nLocation: %s", se.Location)
		}
		if se.Entity != "" {
			fmt.Fprintf(&b, "\nEntity: %s", se.Entity)
		}
	}
	return wrapUsageError(err, b.String())
}

func collectSchemaErrors(err error, out *[]*schema.SchemaError) {
	switch e := err.(type) {
	case nil:
	case *schema.SchemaError:
		*out = append(*out, e)
	case interface{ Unwrap() []error }:
		for _, c := range e.Unwrap() {
			collectSchemaErrors(c, out)
		}
	default:
		collectSchemaErrors(errors.Unwrap(err), out)
	}
}
