// 压测入口：-stage a|b
package main

import (
	"flag"
	"fmt"
	"log"
)

type stageOpts struct {
	kmers   int
	species int
	workers int
}

func main() {
	stage := flag.String("stage", "", "压测阶段: a(合并参数网格) | b(内存 vs mmap 查询)")
	kmers := flag.Int("kmers", 200_000, "合成 k-mer 数量")
	species := flag.Int("species", 8, "物种数")
	workers := flag.Int("workers", 0, "合并并发数，0 表示 NumCPU（仅 stage a 生效）")
	flag.Parse()
	opts := stageOpts{kmers: *kmers, species: *species, workers: *workers}
	switch *stage {
	case "a":
		runStageA(opts)
	case "b":
		runStageB(opts)
	default:
		log.Fatalf("请指定 -stage a|b")
	}
	fmt.Println("压测完成")
}
