package stix

import (
	"context"
	"sort"
	"time"
)

// unmodifiable lists the properties that identify a record across versions.
var unmodifiable = []string{"created", "created_by_ref", "id", "type"}

// NewVersion returns a new version of o with changes applied. A nil change
// removes the property. Unless changes sets it, modified becomes the current
// time, or one millisecond past the current modified when the clock has not
// moved beyond it. A supplied modified must be later than the current one.
func (o *Object) NewVersion(ctx context.Context, changes Fields) (*Object, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if o.kind == nil || !o.kind.versionable() {
		return nil, &TypeNotVersionableError{Type: o.Type()}
	}
	if o.GetBool("revoked") {
		return nil, &RevokedError{Op: "create a new version of"}
	}
	var locked []string
	for _, name := range unmodifiable {
		if _, ok := changes[name]; ok {
			locked = append(locked, name)
		}
	}
	if len(locked) > 0 {
		sort.Strings(locked)
		return nil, &UnmodifiablePropertiesError{Properties: locked}
	}

	fields := make(Fields, len(o.fields)+len(changes)+1)
	for k, v := range o.fields {
		fields[k] = v
	}
	for k, v := range changes {
		fields[k] = v
	}
	if changes["modified"] == nil {
		// The clock may still be inside the millisecond of the current version.
		now, floor := clockFrom(ctx)(), o.Modified().Add(time.Millisecond)
		if now.Before(floor) {
			now = floor
		}
		fields["modified"] = now
	}

	next, err := o.kind.New(ctx, fields, ConstructOpt{AllowCustom: o.custom})
	if err != nil {
		return nil, err
	}
	if changes["modified"] != nil && !next.Modified().After(o.Modified()) {
		return nil, &InvalidValueError{
			Type:     o.kind.name,
			Property: "modified",
			Reason:   "The new modified datetime cannot be before than or equal to the current modified datetime.",
		}
	}

	// Carried-over values keep their default-only status.
	for k, p := range o.presence {
		if _, changed := changes[k]; changed || k == "modified" {
			continue
		}
		if p&PresenceDefaultApplied != 0 && p&PresenceSeen == 0 {
			next.presence[k] = p
		}
	}
	return next, nil
}

// Revoke returns a new version of o with revoked set to true.
func (o *Object) Revoke(ctx context.Context) (*Object, error) {
	if o.kind != nil && o.kind.versionable() && o.GetBool("revoked") {
		return nil, &RevokedError{Op: "revoke"}
	}
	return o.NewVersion(ctx, Fields{"revoked": true})
}
