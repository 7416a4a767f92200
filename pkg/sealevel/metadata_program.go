package sealevel

import (
	"bytes"
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/svsp/pkg/features"
	"k8s.io/klog/v2"
)

const (
	MetadataProgramInstrTypeUpdateMetadataAccountV2 = 15
	MetadataProgramInstrTypeCreateMetadataAccountV3 = 33
)

const MetadataKeyMetadataV1 = 4

// fixed account size, string fields are padded in place
const MetadataAccountSize = 679

const (
	MetadataMaxNameLen   = 32
	MetadataMaxSymbolLen = 10
	MetadataMaxUriLen    = 200
)

// metadata errors
var (
	MetadataErrInvalidMetadataKey       = errors.New("MetadataErrInvalidMetadataKey")
	MetadataErrUpdateAuthorityIncorrect = errors.New("MetadataErrUpdateAuthorityIncorrect")
	MetadataErrNotMutable               = errors.New("MetadataErrNotMutable")
	MetadataErrInvalidMintAuthority     = errors.New("MetadataErrInvalidMintAuthority")
	MetadataErrDerivedKeyInvalid        = errors.New("MetadataErrDerivedKeyInvalid")
	MetadataErrDataTooLong              = errors.New("MetadataErrDataTooLong")
)

type MetadataData struct {
	Name                 string
	Symbol               string
	Uri                  string
	SellerFeeBasisPoints uint16
}

type Metadata struct {
	Key                 byte
	UpdateAuthority     solana.PublicKey
	Mint                solana.PublicKey
	Data                MetadataData
	PrimarySaleHappened bool
	IsMutable           bool
}

type MetadataInstrCreateMetadataAccountV3 struct {
	Data      MetadataData
	IsMutable bool
}

type MetadataInstrUpdateMetadataAccountV2 struct {
	Data                *MetadataData
	NewUpdateAuthority  *solana.PublicKey
	PrimarySaleHappened *bool
}

func readBorshString(decoder *bin.Decoder) (string, error) {
	length, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return "", err
	}
	strBytes, err := decoder.ReadBytes(int(length))
	if err != nil {
		return "", err
	}
	return string(strBytes), nil
}

func writeBorshString(encoder *bin.Encoder, s string) error {
	err := encoder.WriteUint32(uint32(len(s)), bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteBytes([]byte(s), false)
}

// state strings occupy fixed width fields padded with zero bytes
func readPaddedString(decoder *bin.Decoder, maxLen int) (string, error) {
	length, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return "", err
	}
	if int(length) > maxLen {
		return "", InstrErrInvalidAccountData
	}
	strBytes, err := decoder.ReadBytes(maxLen)
	if err != nil {
		return "", err
	}
	return string(strBytes[:length]), nil
}

func writePaddedString(encoder *bin.Encoder, s string, maxLen int) error {
	if len(s) > maxLen {
		return MetadataErrDataTooLong
	}
	err := encoder.WriteUint32(uint32(len(s)), bin.LE)
	if err != nil {
		return err
	}
	padded := make([]byte, maxLen)
	copy(padded, s)
	return encoder.WriteBytes(padded, false)
}

func (data *MetadataData) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	data.Name, err = readBorshString(decoder)
	if err != nil {
		return err
	}

	data.Symbol, err = readBorshString(decoder)
	if err != nil {
		return err
	}

	data.Uri, err = readBorshString(decoder)
	if err != nil {
		return err
	}

	data.SellerFeeBasisPoints, err = decoder.ReadUint16(bin.LE)
	if err != nil {
		return err
	}

	// creators, unused here
	creatorsExist, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	if creatorsExist {
		return InstrErrInvalidInstructionData
	}

	return nil
}

func (data *MetadataData) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := writeBorshString(encoder, data.Name)
	if err != nil {
		return err
	}
	err = writeBorshString(encoder, data.Symbol)
	if err != nil {
		return err
	}
	err = writeBorshString(encoder, data.Uri)
	if err != nil {
		return err
	}
	err = encoder.WriteUint16(data.SellerFeeBasisPoints, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteBool(false)
}

func (metadata *Metadata) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	metadata.Key, err = decoder.ReadByte()
	if err != nil {
		return err
	}
	if metadata.Key != MetadataKeyMetadataV1 {
		return MetadataErrInvalidMetadataKey
	}

	updateAuthority, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(metadata.UpdateAuthority[:], updateAuthority)

	mint, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(metadata.Mint[:], mint)

	metadata.Data.Name, err = readPaddedString(decoder, MetadataMaxNameLen)
	if err != nil {
		return err
	}
	metadata.Data.Symbol, err = readPaddedString(decoder, MetadataMaxSymbolLen)
	if err != nil {
		return err
	}
	metadata.Data.Uri, err = readPaddedString(decoder, MetadataMaxUriLen)
	if err != nil {
		return err
	}
	metadata.Data.SellerFeeBasisPoints, err = decoder.ReadUint16(bin.LE)
	if err != nil {
		return err
	}

	// creators option
	_, err = decoder.ReadBool()
	if err != nil {
		return err
	}

	metadata.PrimarySaleHappened, err = decoder.ReadBool()
	if err != nil {
		return err
	}

	metadata.IsMutable, err = decoder.ReadBool()
	return err
}

func (metadata *Metadata) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteByte(metadata.Key)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(metadata.UpdateAuthority[:], false)
	if err != nil {
		return err
	}
	err = encoder.WriteBytes(metadata.Mint[:], false)
	if err != nil {
		return err
	}
	err = writePaddedString(encoder, metadata.Data.Name, MetadataMaxNameLen)
	if err != nil {
		return err
	}
	err = writePaddedString(encoder, metadata.Data.Symbol, MetadataMaxSymbolLen)
	if err != nil {
		return err
	}
	err = writePaddedString(encoder, metadata.Data.Uri, MetadataMaxUriLen)
	if err != nil {
		return err
	}
	err = encoder.WriteUint16(metadata.Data.SellerFeeBasisPoints, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteBool(false) // no creators
	if err != nil {
		return err
	}
	err = encoder.WriteBool(metadata.PrimarySaleHappened)
	if err != nil {
		return err
	}
	return encoder.WriteBool(metadata.IsMutable)
}

func (instr *MetadataInstrCreateMetadataAccountV3) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	err := instr.Data.UnmarshalWithDecoder(decoder)
	if err != nil {
		return err
	}

	// collection and uses options, unused here
	for i := 0; i < 2; i++ {
		exists, err := decoder.ReadBool()
		if err != nil {
			return err
		}
		if exists {
			return InstrErrInvalidInstructionData
		}
	}

	instr.IsMutable, err = decoder.ReadBool()
	if err != nil {
		return err
	}

	// collection details option
	exists, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	if exists {
		return InstrErrInvalidInstructionData
	}

	return nil
}

func (instr *MetadataInstrCreateMetadataAccountV3) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := instr.Data.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}
	err = encoder.WriteBool(false) // collection
	if err != nil {
		return err
	}
	err = encoder.WriteBool(false) // uses
	if err != nil {
		return err
	}
	err = encoder.WriteBool(instr.IsMutable)
	if err != nil {
		return err
	}
	return encoder.WriteBool(false) // collection details
}

func (instr *MetadataInstrUpdateMetadataAccountV2) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	dataExists, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	if dataExists {
		data := new(MetadataData)
		err = data.UnmarshalWithDecoder(decoder)
		if err != nil {
			return err
		}
		// collection and uses options carried by DataV2
		for i := 0; i < 2; i++ {
			exists, err := decoder.ReadBool()
			if err != nil {
				return err
			}
			if exists {
				return InstrErrInvalidInstructionData
			}
		}
		instr.Data = data
	}

	authorityExists, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	if authorityExists {
		pk, err := decoder.ReadBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		newAuthority := solana.PublicKeyFromBytes(pk)
		instr.NewUpdateAuthority = &newAuthority
	}

	primarySaleExists, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	if primarySaleExists {
		primarySale, err := decoder.ReadBool()
		if err != nil {
			return err
		}
		instr.PrimarySaleHappened = &primarySale
	}

	// is_mutable option
	mutableExists, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	if mutableExists {
		_, err = decoder.ReadBool()
		if err != nil {
			return err
		}
	}

	return nil
}

func (instr *MetadataInstrUpdateMetadataAccountV2) MarshalWithEncoder(encoder *bin.Encoder) error {
	if instr.Data != nil {
		err := encoder.WriteBool(true)
		if err != nil {
			return err
		}
		err = instr.Data.MarshalWithEncoder(encoder)
		if err != nil {
			return err
		}
		err = encoder.WriteBool(false) // collection
		if err != nil {
			return err
		}
		err = encoder.WriteBool(false) // uses
		if err != nil {
			return err
		}
	} else {
		err := encoder.WriteBool(false)
		if err != nil {
			return err
		}
	}

	if instr.NewUpdateAuthority != nil {
		err := encoder.WriteBool(true)
		if err != nil {
			return err
		}
		err = encoder.WriteBytes(instr.NewUpdateAuthority[:], false)
		if err != nil {
			return err
		}
	} else {
		err := encoder.WriteBool(false)
		if err != nil {
			return err
		}
	}

	if instr.PrimarySaleHappened != nil {
		err := encoder.WriteBool(true)
		if err != nil {
			return err
		}
		err = encoder.WriteBool(*instr.PrimarySaleHappened)
		if err != nil {
			return err
		}
	} else {
		err := encoder.WriteBool(false)
		if err != nil {
			return err
		}
	}

	return encoder.WriteBool(false) // is_mutable unchanged
}

// FindMetadataAddress derives the canonical metadata account for a mint.
func FindMetadataAddress(mint solana.PublicKey) (solana.PublicKey, byte) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte("metadata"), MetadataProgramAddr[:], mint[:]}, MetadataProgramAddr)
	if err != nil {
		panic("no viable metadata address bump")
	}
	return addr, bump
}

func unmarshalMetadata(data []byte) (*Metadata, error) {
	decoder := bin.NewBinDecoder(data)

	metadata := new(Metadata)
	err := metadata.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, err
	}
	return metadata, nil
}

func setMetadataAccountState(acct *BorrowedAccount, metadata *Metadata, f features.Features) error {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := metadata.MarshalWithEncoder(encoder)
	if err != nil {
		return err
	}

	stateBytes := make([]byte, MetadataAccountSize)
	copy(stateBytes, buf.Bytes())

	return acct.SetData(f, stateBytes)
}

func MetadataProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUMetadataProgramDefaultComputeUnits)
	if err != nil {
		return err
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	decoder := bin.NewBinDecoder(instrCtx.Data)
	instructionType, err := decoder.ReadByte()
	if err != nil {
		return InstrErrInvalidInstructionData
	}

	signers, err := instrCtx.Signers(txCtx)
	if err != nil {
		return err
	}

	switch instructionType {
	case MetadataProgramInstrTypeCreateMetadataAccountV3:
		{
			var create MetadataInstrCreateMetadataAccountV3
			err = create.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(6)
			if err != nil {
				return err
			}

			err = MetadataProgramCreateMetadataAccount(execCtx, txCtx, instrCtx, &create, signers)
		}

	case MetadataProgramInstrTypeUpdateMetadataAccountV2:
		{
			var update MetadataInstrUpdateMetadataAccountV2
			err = update.UnmarshalWithDecoder(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}

			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}

			err = MetadataProgramUpdateMetadataAccount(execCtx, txCtx, instrCtx, &update, signers)
		}

	default:
		return InstrErrInvalidInstructionData
	}

	return err
}

func MetadataProgramCreateMetadataAccount(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, create *MetadataInstrCreateMetadataAccountV3, signers []solana.PublicKey) error {
	metadataAddr, err := extractAddress(txCtx, instrCtx, 0)
	if err != nil {
		return err
	}
	mintAddr, err := extractAddress(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}
	mintAuthorityAddr, err := extractAddress(txCtx, instrCtx, 2)
	if err != nil {
		return err
	}
	payerAddr, err := extractAddress(txCtx, instrCtx, 3)
	if err != nil {
		return err
	}
	updateAuthorityAddr, err := extractAddress(txCtx, instrCtx, 4)
	if err != nil {
		return err
	}

	derivedAddr, _ := FindMetadataAddress(mintAddr)
	if metadataAddr != derivedAddr {
		klog.Errorf("CreateMetadataAccount: %s is not the metadata account for mint %s", metadataAddr, mintAddr)
		return MetadataErrDerivedKeyInvalid
	}

	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	if mintAcct.Owner() != TokenProgramAddr {
		mintAcct.Drop()
		return InstrErrInvalidAccountOwner
	}
	mint, err := unmarshalTokenMint(mintAcct.Data())
	mintAcct.Drop()
	if err != nil {
		return err
	}
	if !mint.IsInitialized {
		return TokenErrUninitializedState
	}

	if !mint.MintAuthority.IsSome || mint.MintAuthority.Pubkey != mintAuthorityAddr {
		return MetadataErrInvalidMintAuthority
	}
	err = verifySigner(mintAuthorityAddr, signers)
	if err != nil {
		return err
	}

	metadataAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	if metadataAcct.Owner() == MetadataProgramAddr && len(metadataAcct.Data()) != 0 {
		metadataAcct.Drop()
		return InstrErrAccountAlreadyInitialized
	}
	metadataLamports := metadataAcct.Lamports()
	metadataAcct.Drop()

	// fund, allocate and assign the metadata account, signing for the
	// derived address
	rent := ReadRentSysvar(&execCtx.Accounts)
	requiredLamports := rent.MinimumBalance(MetadataAccountSize)
	if metadataLamports < requiredLamports {
		transferInstr := newTransferInstruction(payerAddr, metadataAddr, requiredLamports-metadataLamports)
		err = execCtx.NativeInvoke(*transferInstr, nil)
		if err != nil {
			return err
		}
	}

	allocInstr := newAllocateInstruction(metadataAddr, MetadataAccountSize)
	err = execCtx.NativeInvoke(*allocInstr, []solana.PublicKey{metadataAddr})
	if err != nil {
		return err
	}

	assignInstr := newAssignInstruction(metadataAddr, MetadataProgramAddr)
	err = execCtx.NativeInvoke(*assignInstr, []solana.PublicKey{metadataAddr})
	if err != nil {
		return err
	}

	metadata := new(Metadata)
	metadata.Key = MetadataKeyMetadataV1
	metadata.UpdateAuthority = updateAuthorityAddr
	metadata.Mint = mintAddr
	metadata.Data = create.Data
	metadata.IsMutable = create.IsMutable

	metadataAcct, err = instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer metadataAcct.Drop()

	return setMetadataAccountState(metadataAcct, metadata, execCtx.Features)
}

func MetadataProgramUpdateMetadataAccount(execCtx *ExecutionCtx, txCtx *TransactionCtx, instrCtx *InstructionCtx, update *MetadataInstrUpdateMetadataAccountV2, signers []solana.PublicKey) error {
	metadataAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer metadataAcct.Drop()

	if metadataAcct.Owner() != MetadataProgramAddr {
		return InstrErrInvalidAccountOwner
	}

	metadata, err := unmarshalMetadata(metadataAcct.Data())
	if err != nil {
		return err
	}

	updateAuthorityAddr, err := extractAddress(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}
	err = verifySigner(updateAuthorityAddr, signers)
	if err != nil {
		return err
	}
	if metadata.UpdateAuthority != updateAuthorityAddr {
		return MetadataErrUpdateAuthorityIncorrect
	}

	if update.Data != nil {
		if !metadata.IsMutable {
			return MetadataErrNotMutable
		}
		metadata.Data = *update.Data
	}

	if update.NewUpdateAuthority != nil {
		metadata.UpdateAuthority = *update.NewUpdateAuthority
	}

	if update.PrimarySaleHappened != nil {
		metadata.PrimarySaleHappened = *update.PrimarySaleHappened
	}

	return setMetadataAccountState(metadataAcct, metadata, execCtx.Features)
}
