package acoustic

// TransferMatrix relates pressure p and volume flow U at the two ends of an
// acoustic element:
//
//	[p_in]   [A B] [p_out]
//	[U_in] = [C D] [U_out]
type TransferMatrix struct {
	A, B, C, D Complex
}

// Identity returns the 2×2 identity matrix.
func Identity() TransferMatrix {
	return TransferMatrix{A: 1, B: 0, C: 0, D: 1}
}

// Mul returns m·n, i.e. element m followed by element n along the bore.
func (m TransferMatrix) Mul(n TransferMatrix) TransferMatrix {
	return TransferMatrix{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
	}
}

// Det returns A·D − B·C. Reciprocal ducts have a determinant of 1.
func (m TransferMatrix) Det() Complex {
	return m.A*m.D - m.B*m.C
}

// IsFinite reports whether every entry is finite.
func (m TransferMatrix) IsFinite() bool {
	return m.A.IsFinite() && m.B.IsFinite() && m.C.IsFinite() && m.D.IsFinite()
}

// InputImpedance terminates the output end with load and returns the
// impedance seen at the input: (A·Z + B) / (C·Z + D).
func (m TransferMatrix) InputImpedance(load Complex) (Complex, error) {
	num := m.A.Mul(load).Add(m.B)
	den := m.C.Mul(load).Add(m.D)
	return num.Div(den)
}

// Cascade multiplies matrices in bore order, first element at the input.
// An empty list yields the identity.
func Cascade(matrices ...TransferMatrix) TransferMatrix {
	out := Identity()
	for _, m := range matrices {
		out = out.Mul(m)
	}
	return out
}
