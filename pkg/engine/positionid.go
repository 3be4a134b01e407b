package engine

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// PositionID returns the 14-character gnubg position ID of pos with onRoll as
// the player on roll.
//
// The key lists, for the opponent and then for the player on roll, the
// checkers on each of that player's points 1..24 followed by the bar, as runs
// of 1-bits separated by 0-bits.
func PositionID(pos Position, onRoll Player) string {
	var key [10]byte
	bit := 0
	for _, p := range []Player{onRoll.Opponent(), onRoll} {
		for d := 1; d <= 25; d++ {
			n := pos.Bar[p.Index()]
			if d <= 24 {
				n = pos.Count(p, pointAtDistance(p, d))
			}
			for ; n > 0; n-- {
				key[bit/8] |= 1 << (bit % 8)
				bit++
			}
			bit++
		}
	}

	out := make([]byte, 0, 14)
	k := key[:]
	for i := 0; i < 3; i++ {
		out = append(out,
			base64Chars[k[0]>>2],
			base64Chars[(k[0]&0x03)<<4|k[1]>>4],
			base64Chars[(k[1]&0x0f)<<2|k[2]>>6],
			base64Chars[k[2]&0x3f])
		k = k[3:]
	}
	out = append(out, base64Chars[k[0]>>2], base64Chars[(k[0]&0x03)<<4])
	return string(out)
}

// pointAtDistance is the board point d pips from bearing off for p.
func pointAtDistance(p Player, d int) int {
	if p == PlayerA {
		return 25 - d
	}
	return d
}
