package chunker

// gearTable 是 Gear Hash 的 256 项随机表
// 用固定种子的 SplitMix64 生成，保证跨进程、跨机器切分点一致
var gearTable = func() [256]uint64 {
	var t [256]uint64
	state := uint64(0x6f63666c2d707262) // 固定种子，修改会改变所有切分点
	for i := range t {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		t[i] = z ^ (z >> 31)
	}
	return t
}()
