package audio

import "encoding/binary"

// Resample time-stretches a clip by the given playback rate using linear
// interpolation. rate > 1 shortens the clip, rate < 1 lengthens it.
// A rate of exactly 1 returns the clip unchanged.
func Resample(c *Clip, rate float64) *Clip {
	if rate == 1.0 || rate <= 0 || len(c.PCM) < BytesPerFrame*2 {
		return c
	}

	srcFrames := len(c.PCM) / BytesPerFrame
	dstFrames := int(float64(srcFrames) / rate)
	if dstFrames < 1 {
		dstFrames = 1
	}

	out := make([]byte, dstFrames*BytesPerFrame)
	for i := 0; i < dstFrames; i++ {
		pos := float64(i) * rate
		j := int(pos)
		if j >= srcFrames-1 {
			j = srcFrames - 2
		}
		frac := pos - float64(j)

		a := int16(binary.LittleEndian.Uint16(c.PCM[j*2 : j*2+2]))
		b := int16(binary.LittleEndian.Uint16(c.PCM[(j+1)*2 : (j+1)*2+2]))
		v := int16(float64(a)*(1-frac) + float64(b)*frac)
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(v))
	}

	return &Clip{
		PCM:      out,
		Duration: PCMDuration(len(out)),
	}
}
