package runic

import "fmt"

// Shared fixtures for the format tier tests: a struct with nested
// compounds, a tagged union, and a packed aggregate, each implementing
// both halves of the cursor protocol the way generated code would.

type testItem struct {
	SKU   string
	Count uint32
	Price float64
}

func (it *testItem) MarshalRunic(cx *Context, enc Encoder) error {
	st, err := enc.EncodeStruct(3)
	if err != nil {
		return err
	}
	cx.EnterField("sku")
	f, err := st.EncodeField("sku", 0)
	if err == nil {
		err = f.EncodeString(it.SKU)
	}
	cx.Leave()
	if err != nil {
		return err
	}
	cx.EnterField("count")
	f, err = st.EncodeField("count", 1)
	if err == nil {
		err = f.EncodeUint32(it.Count)
	}
	cx.Leave()
	if err != nil {
		return err
	}
	cx.EnterField("price")
	f, err = st.EncodeField("price", 2)
	if err == nil {
		err = f.EncodeFloat64(it.Price)
	}
	cx.Leave()
	if err != nil {
		return err
	}
	return st.End()
}

func (it *testItem) UnmarshalRunic(cx *Context, dec Decoder) error {
	st, err := dec.DecodeStruct()
	if err != nil {
		return err
	}
	for {
		id, fd, ok, err := st.DecodeField()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch {
		case id.Match("sku", 0):
			cx.EnterField("sku")
			it.SKU, err = fd.DecodeString()
			cx.Leave()
		case id.Match("count", 1):
			cx.EnterField("count")
			it.Count, err = fd.DecodeUint32()
			cx.Leave()
		case id.Match("price", 2):
			cx.EnterField("price")
			it.Price, err = fd.DecodeFloat64()
			cx.Leave()
		default:
			err = fd.Skip()
		}
		if err != nil {
			return err
		}
	}
	return st.End()
}

type testOrder struct {
	ID     uint64
	Ref    string
	Urgent bool
	Items  []testItem
	Labels map[string]int64
}

func (o *testOrder) MarshalRunic(cx *Context, enc Encoder) error {
	cx.EnterType("Order")
	defer cx.Leave()

	st, err := enc.EncodeStruct(5)
	if err != nil {
		return err
	}

	f, err := st.EncodeField("id", 0)
	if err == nil {
		err = f.EncodeUint64(o.ID)
	}
	if err != nil {
		return err
	}
	f, err = st.EncodeField("ref", 1)
	if err == nil {
		err = f.EncodeString(o.Ref)
	}
	if err != nil {
		return err
	}
	f, err = st.EncodeField("urgent", 2)
	if err == nil {
		err = f.EncodeBool(o.Urgent)
	}
	if err != nil {
		return err
	}

	cx.EnterField("items")
	f, err = st.EncodeField("items", 3)
	if err == nil {
		var seq SequenceEncoder
		seq, err = f.EncodeSequence(len(o.Items))
		for i := range o.Items {
			if err != nil {
				break
			}
			cx.EnterIndex(i)
			var el Encoder
			el, err = seq.EncodeNext()
			if err == nil {
				err = o.Items[i].MarshalRunic(cx, el)
			}
			cx.Leave()
		}
		if err == nil {
			err = seq.End()
		}
	}
	cx.Leave()
	if err != nil {
		return err
	}

	cx.EnterField("labels")
	f, err = st.EncodeField("labels", 4)
	if err == nil {
		var me MapEncoder
		me, err = f.EncodeMap(len(o.Labels))
		for k, v := range o.Labels {
			if err != nil {
				break
			}
			cx.EnterKey(k)
			var ke Encoder
			ke, err = me.EncodeKey()
			if err == nil {
				err = ke.EncodeString(k)
			}
			if err == nil {
				var ve Encoder
				ve, err = me.EncodeValue()
				if err == nil {
					err = ve.EncodeInt64(v)
				}
			}
			cx.Leave()
		}
		if err == nil {
			err = me.End()
		}
	}
	cx.Leave()
	if err != nil {
		return err
	}
	return st.End()
}

func (o *testOrder) UnmarshalRunic(cx *Context, dec Decoder) error {
	cx.EnterType("Order")
	defer cx.Leave()

	st, err := dec.DecodeStruct()
	if err != nil {
		return err
	}
	for {
		id, fd, ok, err := st.DecodeField()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch {
		case id.Match("id", 0):
			o.ID, err = fd.DecodeUint64()
		case id.Match("ref", 1):
			o.Ref, err = fd.DecodeString()
		case id.Match("urgent", 2):
			o.Urgent, err = fd.DecodeBool()
		case id.Match("items", 3):
			cx.EnterField("items")
			err = o.decodeItems(cx, fd)
			cx.Leave()
		case id.Match("labels", 4):
			cx.EnterField("labels")
			err = o.decodeLabels(cx, fd)
			cx.Leave()
		default:
			err = fd.Skip()
		}
		if err != nil {
			return err
		}
	}
	return st.End()
}

func (o *testOrder) decodeItems(cx *Context, dec Decoder) error {
	seq, err := dec.DecodeSequence()
	if err != nil {
		return err
	}
	o.Items = make([]testItem, 0, seq.Len())
	for i := 0; ; i++ {
		el, ok, err := seq.DecodeNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		cx.EnterIndex(i)
		var item testItem
		err = item.UnmarshalRunic(cx, el)
		cx.Leave()
		if err != nil {
			return err
		}
		o.Items = append(o.Items, item)
	}
	return seq.End()
}

func (o *testOrder) decodeLabels(cx *Context, dec Decoder) error {
	md, err := dec.DecodeMap()
	if err != nil {
		return err
	}
	o.Labels = make(map[string]int64, md.Len())
	for {
		kd, ok, err := md.DecodeKey()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		k, err := kd.DecodeString()
		if err != nil {
			return err
		}
		cx.EnterKey(k)
		vd, err := md.DecodeValue()
		var v int64
		if err == nil {
			v, err = vd.DecodeInt64()
		}
		cx.Leave()
		if err != nil {
			return err
		}
		o.Labels[k] = v
	}
	return md.End()
}

// testItemStrict decodes the testItem shape but treats every field as
// required, reporting absences through the context.
type testItemStrict struct {
	testItem
}

func (it *testItemStrict) UnmarshalRunic(cx *Context, dec Decoder) error {
	st, err := dec.DecodeStruct()
	if err != nil {
		return err
	}
	var seen [3]bool
	for {
		id, fd, ok, err := st.DecodeField()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch {
		case id.Match("sku", 0):
			it.SKU, err = fd.DecodeString()
			seen[0] = true
		case id.Match("count", 1):
			it.Count, err = fd.DecodeUint32()
			seen[1] = true
		case id.Match("price", 2):
			it.Price, err = fd.DecodeFloat64()
			seen[2] = true
		default:
			err = fd.Skip()
		}
		if err != nil {
			return err
		}
	}
	if err := st.End(); err != nil {
		return err
	}
	for i, name := range []string{"sku", "count", "price"} {
		if !seen[i] {
			return cx.Custom(fmt.Errorf("%w: %s", ErrMissingField, name))
		}
	}
	return nil
}

// testOrderV2 frames two extra fields around the testOrder set, for
// schema evolution tests: a decoder that only knows testOrder must
// skip them.
type testOrderV2 struct {
	testOrder
	Priority uint8
	Comment  string
}

func (o *testOrderV2) MarshalRunic(cx *Context, enc Encoder) error {
	st, err := enc.EncodeStruct(7)
	if err != nil {
		return err
	}

	f, err := st.EncodeField("priority", 5)
	if err == nil {
		err = f.EncodeUint8(o.Priority)
	}
	if err != nil {
		return err
	}
	f, err = st.EncodeField("id", 0)
	if err == nil {
		err = f.EncodeUint64(o.ID)
	}
	if err != nil {
		return err
	}
	f, err = st.EncodeField("ref", 1)
	if err == nil {
		err = f.EncodeString(o.Ref)
	}
	if err != nil {
		return err
	}
	f, err = st.EncodeField("urgent", 2)
	if err == nil {
		err = f.EncodeBool(o.Urgent)
	}
	if err != nil {
		return err
	}
	f, err = st.EncodeField("comment", 6)
	if err == nil {
		err = f.EncodeString(o.Comment)
	}
	if err != nil {
		return err
	}

	f, err = st.EncodeField("items", 3)
	if err == nil {
		var seq SequenceEncoder
		seq, err = f.EncodeSequence(len(o.Items))
		for i := range o.Items {
			if err != nil {
				break
			}
			var el Encoder
			el, err = seq.EncodeNext()
			if err == nil {
				err = o.Items[i].MarshalRunic(cx, el)
			}
		}
		if err == nil {
			err = seq.End()
		}
	}
	if err != nil {
		return err
	}

	f, err = st.EncodeField("labels", 4)
	if err == nil {
		var me MapEncoder
		me, err = f.EncodeMap(len(o.Labels))
		for k, v := range o.Labels {
			if err != nil {
				break
			}
			var ke Encoder
			ke, err = me.EncodeKey()
			if err == nil {
				err = ke.EncodeString(k)
			}
			if err == nil {
				var ve Encoder
				ve, err = me.EncodeValue()
				if err == nil {
					err = ve.EncodeInt64(v)
				}
			}
		}
		if err == nil {
			err = me.End()
		}
	}
	if err != nil {
		return err
	}
	return st.End()
}

// testEvent is a tagged union with an integer discriminant.
type testEvent struct {
	Kind    uint64
	Payload int64
}

func (e *testEvent) MarshalRunic(cx *Context, enc Encoder) error {
	ve, err := enc.EncodeVariant()
	if err != nil {
		return err
	}
	te, err := ve.EncodeTag()
	if err != nil {
		return err
	}
	if err := te.EncodeUint64(e.Kind); err != nil {
		return err
	}
	pe, err := ve.EncodeValue()
	if err != nil {
		return err
	}
	if err := pe.EncodeInt64(e.Payload); err != nil {
		return err
	}
	return ve.End()
}

func (e *testEvent) UnmarshalRunic(cx *Context, dec Decoder) error {
	vd, err := dec.DecodeVariant()
	if err != nil {
		return err
	}
	td, err := vd.DecodeTag()
	if err != nil {
		return err
	}
	if e.Kind, err = td.DecodeUint64(); err != nil {
		return err
	}
	pd, err := vd.DecodeValue()
	if err != nil {
		return err
	}
	if e.Payload, err = pd.DecodeInt64(); err != nil {
		return err
	}
	return vd.End()
}

// testPoint is a packed aggregate: three fixed-width fields in one
// blob with zero per-field framing.
type testPoint struct {
	X, Y   int32
	Weight float32
}

func (p *testPoint) MarshalRunic(cx *Context, enc Encoder) error {
	pk, err := enc.EncodePack()
	if err != nil {
		return err
	}
	if err := pk.PackInt32(p.X); err != nil {
		return err
	}
	if err := pk.PackInt32(p.Y); err != nil {
		return err
	}
	if err := pk.PackFloat32(p.Weight); err != nil {
		return err
	}
	return pk.End()
}

func (p *testPoint) UnmarshalRunic(cx *Context, dec Decoder) error {
	pk, err := dec.DecodePack()
	if err != nil {
		return err
	}
	if p.X, err = pk.Int32(); err != nil {
		return err
	}
	if p.Y, err = pk.Int32(); err != nil {
		return err
	}
	if p.Weight, err = pk.Float32(); err != nil {
		return err
	}
	return pk.End()
}

func sampleOrder() *testOrder {
	return &testOrder{
		ID:     9001,
		Ref:    "ord-2481",
		Urgent: true,
		Items: []testItem{
			{SKU: "widget", Count: 3, Price: 12.5},
			{SKU: "gadget", Count: 1, Price: 99.0},
		},
		Labels: map[string]int64{"weight": -12, "zone": 4},
	}
}

func ordersEqual(a, b *testOrder) bool {
	if a.ID != b.ID || a.Ref != b.Ref || a.Urgent != b.Urgent {
		return false
	}
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			return false
		}
	}
	if len(a.Labels) != len(b.Labels) {
		return false
	}
	for k, v := range a.Labels {
		if b.Labels[k] != v {
			return false
		}
	}
	return true
}
