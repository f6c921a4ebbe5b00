package gig

import "github.com/cwbudde/samplelib/chunk"

var (
	formDLS = chunk.MakeID("DLS ")

	ckVers = chunk.MakeID("vers")
	ckColh = chunk.MakeID("colh")
	ckPtbl = chunk.MakeID("ptbl")
	ckSmpl = chunk.MakeID("smpl")
	ck3gix = chunk.MakeID("3gix")
	ckEwav = chunk.MakeID("ewav")
	ckInsh = chunk.MakeID("insh")
	ck3ewg = chunk.MakeID("3ewg")
	ckRgnh = chunk.MakeID("rgnh")
	ckWlnk = chunk.MakeID("wlnk")
	ck3lnk = chunk.MakeID("3lnk")
	ckWsmp = chunk.MakeID("wsmp")
	ck3ewa = chunk.MakeID("3ewa")
	ck3gnm = chunk.MakeID("3gnm")
	ck3crc = chunk.MakeID("3crc")
	ckScri = chunk.MakeID("Scri")
	ckLsnm = chunk.MakeID("LSNM")
	ckScsl = chunk.MakeID("SCSL")

	listWvpl = chunk.MakeID("wvpl")
	listWave = chunk.MakeID("wave")
	listLins = chunk.MakeID("lins")
	listIns  = chunk.MakeID("ins ")
	listLrgn = chunk.MakeID("lrgn")
	listRgn  = chunk.MakeID("rgn ")
	listRgn2 = chunk.MakeID("rgn2")
	listLart = chunk.MakeID("lart")
	list3prg = chunk.MakeID("3prg")
	list3ewl = chunk.MakeID("3ewl")
	list3gri = chunk.MakeID("3gri")
	list3gnl = chunk.MakeID("3gnl")
	list3LS  = chunk.MakeID("3LS ")
	listRTIS = chunk.MakeID("RTIS")
)
