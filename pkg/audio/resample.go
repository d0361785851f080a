package audio

// Resample converts mono samples from srcRate to dstRate using linear
// interpolation. If the rates match, either rate is non-positive, or the
// input is too short to interpolate, the input is returned unchanged.
func Resample(samples []float64, srcRate, dstRate int) []float64 {
	if srcRate <= 0 || dstRate <= 0 {
		return samples
	}
	if srcRate == dstRate || len(samples) < 2 {
		return samples
	}

	srcSamples := len(samples)
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]float64, dstSamples)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = samples[srcIdx+1]
		}

		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

// ResampleClip is the Clip form of Resample. Clips already at dstRate are
// returned unchanged.
func ResampleClip(c Clip, dstRate int) Clip {
	if c.Rate == dstRate || dstRate <= 0 {
		return c
	}
	return Clip{Samples: Resample(c.Samples, c.Rate, dstRate), Rate: dstRate}
}
