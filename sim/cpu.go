package sim

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Minimal RV32I subset, with LB/LBU/SB added for UART-bytes demos.
// Treat any ECALL as "halt".

type CPU struct {
	Reg   [32]uint32
	PC    uint32
	Bus   *Bus
	Trace bool

	logger log.Logger
	halt   string
}

func NewCPU(bus *Bus, logger log.Logger) *CPU {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &CPU{Bus: bus, logger: logger}
}

// Start transfers execution to entry: the next Step fetches from there.
func (c *CPU) Start(entry uint32) {
	c.PC = entry
	c.halt = ""
}

// Run steps until halt or maxSteps, returning the number of steps taken.
func (c *CPU) Run(maxSteps int) int {
	for i := 0; i < maxSteps; i++ {
		if !c.Step() {
			return i + 1
		}
	}
	return maxSteps
}

// HaltReason is "" while running, otherwise why Step returned false.
func (c *CPU) HaltReason() string { return c.halt }

func (c *CPU) readReg(i uint32) uint32 {
	if i == 0 {
		return 0
	}
	return c.Reg[i]
}

func (c *CPU) writeReg(i uint32, v uint32) {
	if i != 0 {
		c.Reg[i] = v
	}
}

func (c *CPU) fetch() (uint32, bool) {
	return c.Bus.Read32(c.PC)
}

func (c *CPU) stop(reason string) bool {
	c.halt = reason
	level.Debug(c.logger).Log("msg", "cpu halted", "reason", reason, "pc", fmt.Sprintf("%08x", c.PC))
	return false
}

func (c *CPU) Step() bool {
	inst, ok := c.fetch()
	if !ok {
		return c.stop("fetch out of bounds")
	}
	op := inst & 0x7F
	rd := (inst >> 7) & 0x1F
	f3 := (inst >> 12) & 0x7
	rs1 := (inst >> 15) & 0x1F
	rs2 := (inst >> 20) & 0x1F
	f7 := (inst >> 25) & 0x7F

	nextPC := c.PC + 4

	if c.Trace {
		level.Debug(c.logger).Log("pc", fmt.Sprintf("%08x", c.PC), "inst", fmt.Sprintf("%08x", inst))
	}

	switch op {
	case 0x37: // LUI
		c.writeReg(rd, uint32(immU(inst)))
	case 0x17: // AUIPC
		c.writeReg(rd, uint32(int32(c.PC)+immU(inst)))
	case 0x6F: // JAL
		imm := uint32(immJ(inst))
		c.writeReg(rd, c.PC+4)
		nextPC = c.PC + imm
	case 0x67: // JALR
		imm := uint32(immI(inst))
		tgt := (c.readReg(rs1) + imm) &^ 1
		c.writeReg(rd, c.PC+4)
		nextPC = tgt

	case 0x63: // BRANCH
		a := c.readReg(rs1)
		b := c.readReg(rs2)
		imm := uint32(immB(inst))
		switch f3 {
		case 0x0: // BEQ
			if a == b {
				nextPC = c.PC + imm
			}
		case 0x1: // BNE
			if a != b {
				nextPC = c.PC + imm
			}
		case 0x4: // BLT
			if int32(a) < int32(b) {
				nextPC = c.PC + imm
			}
		case 0x5: // BGE
			if int32(a) >= int32(b) {
				nextPC = c.PC + imm
			}
		case 0x6: // BLTU
			if a < b {
				nextPC = c.PC + imm
			}
		case 0x7: // BGEU
			if a >= b {
				nextPC = c.PC + imm
			}
		default:
			level.Warn(c.logger).Log("msg", "unhandled BRANCH", "f3", f3)
		}

	case 0x03: // LOAD
		base := c.readReg(rs1)
		addr := base + uint32(immI(inst))
		switch f3 {
		case 0x0: // LB
			b, ok := c.Bus.Read8(addr)
			if !ok {
				return c.stop("LB out of bounds")
			}
			c.writeReg(rd, uint32(int32(int8(b))))
		case 0x4: // LBU
			b, ok := c.Bus.Read8(addr)
			if !ok {
				return c.stop("LBU out of bounds")
			}
			c.writeReg(rd, uint32(b))
		case 0x2: // LW
			w, ok := c.Bus.Read32(addr)
			if !ok {
				return c.stop("LW out of bounds")
			}
			c.writeReg(rd, w)
		default:
			level.Warn(c.logger).Log("msg", "unhandled LOAD", "f3", f3)
		}

	case 0x23: // STORE
		base := c.readReg(rs1)
		addr := base + uint32(immS(inst))
		switch f3 {
		case 0x0: // SB
			v := uint8(c.readReg(rs2) & 0xFF)
			if !c.Bus.Write8(addr, v) {
				return c.stop("SB out of bounds")
			}
		case 0x2: // SW
			v := c.readReg(rs2)
			if !c.Bus.Write32(addr, v) {
				return c.stop("SW out of bounds")
			}
		default:
			level.Warn(c.logger).Log("msg", "unhandled STORE", "f3", f3)
		}

	case 0x13: // OP-IMM
		a := c.readReg(rs1)
		imm := uint32(immI(inst))
		switch f3 {
		case 0x0: // ADDI
			c.writeReg(rd, a+uint32(int32(imm)))
		case 0x4: // XORI
			c.writeReg(rd, a^imm)
		case 0x6: // ORI
			c.writeReg(rd, a|imm)
		case 0x7: // ANDI
			c.writeReg(rd, a&imm)
		case 0x1: // SLLI
			sh := (imm & 0x1F)
			c.writeReg(rd, a<<sh)
		case 0x5:
			if (imm>>10)&0x3F == 0x00 { // SRLI
				c.writeReg(rd, a>>(imm&0x1F))
			} else if (imm>>10)&0x3F == 0x10 { // SRAI
				c.writeReg(rd, uint32(int32(a)>>(imm&0x1F)))
			} else {
				level.Warn(c.logger).Log("msg", "unhandled OP-IMM shift")
			}
		default:
			level.Warn(c.logger).Log("msg", "unhandled OP-IMM", "f3", f3)
		}

	case 0x33: // OP
		a := c.readReg(rs1)
		b := c.readReg(rs2)
		switch f3 {
		case 0x0:
			if f7 == 0x20 { // SUB
				c.writeReg(rd, a-b)
			} else { // ADD
				c.writeReg(rd, a+b)
			}
		case 0x4: // XOR
			c.writeReg(rd, a^b)
		case 0x6: // OR
			c.writeReg(rd, a|b)
		case 0x7: // AND
			c.writeReg(rd, a&b)
		case 0x1: // SLL
			c.writeReg(rd, a<<(b&0x1F))
		case 0x5: // SRL/SRA
			if f7 == 0x20 {
				c.writeReg(rd, uint32(int32(a)>>(b&0x1F)))
			} else {
				c.writeReg(rd, a>>(b&0x1F))
			}
		case 0x2: // SLT
			if int32(a) < int32(b) {
				c.writeReg(rd, 1)
			} else {
				c.writeReg(rd, 0)
			}
		case 0x3: // SLTU
			if a < b {
				c.writeReg(rd, 1)
			} else {
				c.writeReg(rd, 0)
			}
		default:
			level.Warn(c.logger).Log("msg", "unhandled OP", "f3", f3, "f7", fmt.Sprintf("0x%x", f7))
		}

	case 0x73: // SYSTEM
		// ECALL is a clean halt here.
		return c.stop("ecall")

	default:
		level.Warn(c.logger).Log("msg", "unsupported opcode", "op", fmt.Sprintf("0x%x", op), "pc", fmt.Sprintf("%08x", c.PC))
	}

	c.PC = nextPC
	c.Reg[0] = 0
	return true
}
