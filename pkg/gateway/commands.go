package gateway

import "context"

// SetAttribute writes one attribute value through the session and, on
// success, optimistically notifies local listeners so observers reflect the
// write before the hub's own report echoes it. Transport errors propagate to
// the caller with no local state mutated and no retry.
func (g *Gateway) SetAttribute(ctx context.Context, eid, attr string, value any, method int) error {
	if err := g.session.SetAttribute(ctx, eid, attr, value, method); err != nil {
		return err
	}
	g.UpdateListeners(eid, []AttrValue{{Attr: attr, Value: value}})
	return nil
}

// SetAttributes writes several attribute values through the session in one
// call, with the same optimistic notification semantics as SetAttribute.
func (g *Gateway) SetAttributes(ctx context.Context, eid string, attrs []AttrValue, method int) error {
	if err := g.session.SetAttributes(ctx, eid, attrs, method); err != nil {
		return err
	}
	g.UpdateListeners(eid, attrs)
	return nil
}
