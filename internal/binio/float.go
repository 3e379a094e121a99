package binio

import "math"

func math32FromBits(v uint32) float32 { return math.Float32frombits(v) }
func math32ToBits(v float32) uint32   { return math.Float32bits(v) }
func math64FromBits(v uint64) float64 { return math.Float64frombits(v) }
func math64ToBits(v float64) uint64   { return math.Float64bits(v) }
