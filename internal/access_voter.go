package internal

import (
	"context"
	"strconv"
	"strings"

	"github.com/lychee-technology/tca"
	"go.uber.org/zap"
)

// accessVoter evaluates the enable field rules against fetched rows. Its
// verdicts agree with the expressions of EnableFieldsRestriction.
type accessVoter struct {
	schemas    tca.SchemaResolver
	dispatcher tca.EventDispatcher
}

var _ tca.AccessVoter = (*accessVoter)(nil)

// NewAccessVoter skips the access event when dispatcher is nil.
func NewAccessVoter(schemas tca.SchemaResolver, dispatcher tca.EventDispatcher) tca.AccessVoter {
	return &accessVoter{schemas: schemas, dispatcher: dispatcher}
}

func (v *accessVoter) AccessGranted(ctx context.Context, table string, record tca.Row, tc *tca.Context) (bool, error) {
	if v.dispatcher != nil {
		event := tca.NewAccessGrantedEvent(table, record, tc)
		if _, err := v.dispatcher.Dispatch(ctx, event); err != nil {
			return false, err
		}
		if granted, decided := event.AccessGranted(); decided {
			EmitAccessDecision(ctx, table, granted, "listener")
			zap.S().Debugw("access decided by listener", "table", table, "granted", granted)
			return granted, nil
		}
		record = event.Record()
	}

	granted, err := v.evaluate(table, record, tc)
	if err != nil {
		return false, err
	}
	EmitAccessDecision(ctx, table, granted, "rules")
	return granted, nil
}

func (v *accessVoter) evaluate(table string, record tca.Row, tc *tca.Context) (bool, error) {
	schemas := pinSchemas(v.schemas)
	if !schemas.Has(table) {
		return true, nil
	}
	schema, err := schemas.Get(table)
	if err != nil {
		return false, err
	}
	value := func(c tca.Capability) (any, bool) {
		if !schema.HasCapability(c) {
			return nil, false
		}
		field, err := schema.CapabilityFieldName(c)
		if err != nil {
			return nil, false
		}
		return record[field], true
	}

	start, hasStart := value(tca.CapabilityRestrictionStartTime)
	end, hasEnd := value(tca.CapabilityRestrictionEndTime)
	if includesScheduled(tc) {
		hasStart, hasEnd = false, false
	}
	if (hasStart || hasEnd) && !tc.HasAccessTime() {
		capability := tca.CapabilityRestrictionStartTime
		if !hasStart {
			capability = tca.CapabilityRestrictionEndTime
		}
		return false, tca.NewAccessTimeNotSetError(table).WithCapability(capability)
	}

	if disabled, ok := value(tca.CapabilityRestrictionDisabledField); ok {
		if tca.Truthy(disabled) && !includesHidden(tc, table) {
			return false, nil
		}
	}
	if hasStart {
		if ts, _ := tca.IntValue(start); ts > tc.AccessTimestamp() {
			return false, nil
		}
	}
	if hasEnd {
		if ts, _ := tca.IntValue(end); ts != 0 && ts <= tc.AccessTimestamp() {
			return false, nil
		}
	}
	return groupAccess(schemas, table, record, tc), nil
}

// GroupAccessGranted allows records without a group restriction. Restricted
// records need a user aspect sharing at least one group with the record.
func (v *accessVoter) GroupAccessGranted(table string, record tca.Row, tc *tca.Context) bool {
	return groupAccess(pinSchemas(v.schemas), table, record, tc)
}

// groupAccess matches the comma separated group list token by token, without
// trimming, the way the SQL set membership does.
func groupAccess(schemas tca.SchemaResolver, table string, record tca.Row, tc *tca.Context) bool {
	if !schemas.Has(table) {
		return true
	}
	schema, err := schemas.Get(table)
	if err != nil || !schema.HasCapability(tca.CapabilityRestrictionUserGroup) {
		return true
	}
	field, err := schema.CapabilityFieldName(tca.CapabilityRestrictionUserGroup)
	if err != nil {
		return true
	}
	groups := record[field]
	if !tca.Truthy(groups) {
		return true
	}
	if tc == nil || tc.User == nil {
		return false
	}
	member := NewSet[string]()
	for _, id := range tc.User.GroupIDs {
		member.Add(strconv.Itoa(id))
	}
	return member.ContainsAny(strings.Split(tca.StringOf(groups), ",")...)
}

// AccessGrantedForPageInRootLine only applies the page restrictions when they
// extend to subpages.
func (v *accessVoter) AccessGrantedForPageInRootLine(ctx context.Context, page tca.Row, tc *tca.Context) (bool, error) {
	if !tca.Truthy(page["extendToSubpages"]) {
		return true, nil
	}
	return v.AccessGranted(ctx, "pages", page, tc)
}
