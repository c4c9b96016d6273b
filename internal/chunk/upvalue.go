package chunk

// BindUpvalues runs once over the whole forest (§4.4) to populate
// every prototype's BoundUpvalueNames by walking each upvalue
// descriptor up to the enclosing prototype that actually owns the
// local it names.
func BindUpvalues(forest Forest) error {
	for _, proto := range forest {
		if len(proto.RawUpvalues) == 0 {
			continue
		}
		if !proto.HasParent {
			return malformedf("prototype %d has %d unresolved upvalue(s) but no parent", proto.ID, len(proto.RawUpvalues))
		}
		parent := forest.ByID(proto.ParentID)
		names := make([]string, 0, len(proto.RawUpvalues))
		for _, uv := range proto.RawUpvalues {
			name, err := resolveUpvalueName(forest, parent, uv)
			if err != nil {
				return err
			}
			names = append(names, name)
		}
		proto.BoundUpvalueNames = names
	}
	return nil
}

// resolveUpvalueName climbs the forest along parent ids until it finds
// the prototype that owns the named local (§4.4). The climb is
// bounded by the forest's depth since every parent id is strictly
// greater than its child's (§3 invariant).
func resolveUpvalueName(forest Forest, owner *Prototype, uv UpValueDescriptor) (string, error) {
	if uv.IsLocal() {
		idx := int(uv.TableIndex)
		if len(owner.Symbols) == 0 {
			return syntheticSymbolName(owner.ID, idx), nil
		}
		return owner.Symbols[idx], nil
	}

	idx := int(uv.TableIndex)
	if idx >= len(owner.RawUpvalues) {
		return "", malformedf("upvalue index %d out of range for prototype %d's %d upvalues", idx, owner.ID, len(owner.RawUpvalues))
	}
	if !owner.HasParent {
		return "", malformedf("prototype %d has an unresolved recursive upvalue and no parent", owner.ID)
	}
	grandparent := forest.ByID(owner.ParentID)
	return resolveUpvalueName(forest, grandparent, owner.RawUpvalues[idx])
}
