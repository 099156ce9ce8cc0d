// Package content maps drawn numbers to their display meaning.
package content

import "fmt"

// smorfia is the Neapolitan dream book, one meaning per tombola number.
var smorfia = map[int]string{
	1:  "L'Italia",
	2:  "'A piccerella (la bambina)",
	3:  "'A jatta (la gatta)",
	4:  "'O puorco (il maiale)",
	5:  "'A mano (la mano)",
	6:  "Chella che guarda 'nterra (quella che guarda a terra)",
	7:  "'O vascio (il palazzo)",
	8:  "'A maronna (la madonna)",
	9:  "'A figliata (la prole)",
	10: "'E fasule (i fagioli)",
	11: "'E suricille (i topolini)",
	12: "'O surdato (il soldato)",
	13: "Sant'Antonio",
	14: "'O mbriaco (l'ubriaco)",
	15: "'O guaglione (il ragazzo)",
	16: "'O culo (il sedere)",
	17: "'A disgrazzia (la disgrazia)",
	18: "'O sanghe (il sangue)",
	19: "'A resata (la risata)",
	20: "'A festa (la festa)",
	21: "'A femmena annura (la donna nuda)",
	22: "'O pazzo (il pazzo)",
	23: "'O scemo (lo scemo)",
	24: "'E gguardie (le guardie)",
	25: "Natale",
	26: "Nanninella (piccola Anna)",
	27: "'O cantero (il vaso da notte)",
	28: "'E zizze (le tette)",
	29: "'O pate d''e criature (il padre dei bambini)",
	30: "'E ppalle d''o tenente (le palle del tenente)",
	31: "'O padrone 'e casa (il padrone di casa)",
	32: "'O capitone (il capitone)",
	33: "L'anne 'e Cristo (gli anni di Cristo)",
	34: "'A capa (la testa)",
	35: "L'aucelluzz (l'uccellino)",
	36: "'E castagnelle (le nacchere)",
	37: "'O monaco (il monaco)",
	38: "'E mmazzate (le botte)",
	39: "'A funa 'nganna (la corda al collo)",
	40: "'A paposcia (l'ernia)",
	41: "'O curtiello (il coltello)",
	42: "'O ccafè (il caffè)",
	43: "'A femmena 'ncopp''o balcone (la donna al balcone)",
	44: "'E ccancelle (le prigioni)",
	45: "'O vino buono (il vino buono)",
	46: "'E denare (i soldi)",
	47: "'O muorto (il morto)",
	48: "'O muorto che parla (il morto che parla)",
	49: "'O piezzo 'e carne (il pezzo di carne)",
	50: "'O ppane (il pane)",
	51: "'O ciardino (il giardino)",
	52: "'A mamma (la mamma)",
	53: "'O viecchio (il vecchio)",
	54: "'O cappiello (il cappello)",
	55: "'A museca (la musica)",
	56: "'A caruta (la caduta)",
	57: "'O scartellato (il gobbo)",
	58: "'O paccotto (il regalo)",
	59: "'E pile (i peli)",
	60: "'O lamento (il lamento)",
	61: "'O cacciatore (il cacciatore)",
	62: "'O muorto acciso (il morto ammazzato)",
	63: "'A sposa (la sposa)",
	64: "'A sciammeria (la marsina)",
	65: "'O chianto (il pianto)",
	66: "'E ddoie zetelle (le due zitelle)",
	67: "'O totano int''a chitarra (il totano nella chitarra)",
	68: "'A zuppa cotta (la zuppa cotta)",
	69: "Sottosopra",
	70: "'O palazzo (il palazzo)",
	71: "L'ommo 'e merda (l'uomo di merda)",
	72: "'A meraviglia (la meraviglia)",
	73: "'O spitale (l'ospedale)",
	74: "'A rotta (la grotta)",
	75: "Pullecenella (Pulcinella)",
	76: "'A funtana (la fontana)",
	77: "'E riavulille (i diavoletti)",
	78: "'A bella figliola (la bella ragazza)",
	79: "'O mariuolo (il ladro)",
	80: "'A vocca (la bocca)",
	81: "'E sciure (i fiori)",
	82: "'A tavula 'mbandita (la tavola imbandita)",
	83: "'O maletiempo (il maltempo)",
	84: "'A chiesa (la chiesa)",
	85: "L'aneme 'o priatorio (le anime del purgatorio)",
	86: "'A puteca (la bottega)",
	87: "'E perucchie (i pidocchi)",
	88: "'E casecavalle (i caciocavalli)",
	89: "'A vecchia (la vecchia)",
	90: "'A paura (la paura)",
}

// Meaning returns the smorfia meaning of n, or a generic line for numbers
// outside the dictionary.
func Meaning(n int) string {
	if m, ok := smorfia[n]; ok {
		return m
	}
	return fmt.Sprintf("Numero %d - Buona fortuna!", n)
}
