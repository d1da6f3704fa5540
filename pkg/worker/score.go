package worker

// LeadingZeroBytes counts the leading zero bytes of an address. Batch
// backends use this as the kernel-side match threshold.
func LeadingZeroBytes(addr [20]byte) int {
	for i, b := range addr {
		if b != 0 {
			return i
		}
	}
	return len(addr)
}

// TotalZeroBytes counts all zero bytes of an address.
func TotalZeroBytes(addr [20]byte) int {
	n := 0
	for _, b := range addr {
		if b == 0 {
			n++
		}
	}
	return n
}
