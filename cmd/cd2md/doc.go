// Command cd2md rips an audio CD track by track and transfers the tracks to
// a NetMD MiniDisc recorder, optionally encoding them to ATRAC3 first.
//
// Run `cd2md rip` with a disc in the drive and a recorder attached. `cd2md
// toc`, `cd2md lookup` and `cd2md md info` inspect either side without
// writing anything; `cd2md history` lists past runs.
package main
